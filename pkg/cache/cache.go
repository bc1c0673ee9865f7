// pkg/cache/cache.go
package cache

import (
	"context"
	"time"
)

// Stats counters are cumulative since construction or the last Clear.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int64 `json:"size"`
}

// Cache fronts the resolver so repeat lookups skip the tenant fan-out.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Has(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Stats(ctx context.Context) Stats
}
