// pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "roadbook:cache:"

// Redis implements Cache over go-redis with native TTL expiry. Hit/miss
// counters are process-local; Size scans the cache key prefix.
type Redis struct {
	cli    *redis.Client
	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedis(cli *redis.Client) *Redis {
	return &Redis{cli: cli}
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool) {
	b, err := r.cli.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		r.misses.Add(1)
		return nil, false
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return v, true
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = r.cli.Set(ctx, redisPrefix+key, b, ttl).Err()
}

func (r *Redis) Has(ctx context.Context, key string) bool {
	n, err := r.cli.Exists(ctx, redisPrefix+key).Result()
	return err == nil && n > 0
}

func (r *Redis) Delete(ctx context.Context, key string) {
	_ = r.cli.Del(ctx, redisPrefix+key).Err()
}

func (r *Redis) Clear(ctx context.Context) {
	iter := r.cli.Scan(ctx, 0, redisPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		_ = r.cli.Del(ctx, iter.Val()).Err()
	}
	r.hits.Store(0)
	r.misses.Store(0)
}

func (r *Redis) Stats(ctx context.Context) Stats {
	var size int64
	iter := r.cli.Scan(ctx, 0, redisPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		size++
	}
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load(), Size: size}
}
