// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Upstream Travel Compositor API
	CompositorBaseURL string
	CompositorTimeout time.Duration

	// Resolver / cache tuning
	SearchTimeout   time.Duration
	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheSweep      time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:               env("ROADBOOK_ENV", "dev"),
		HTTPAddr:          env("ROADBOOK_HTTP_ADDR", ":8080"),
		CompositorBaseURL: env("TC_BASE_URL", "https://online.travelcompositor.com/resources"),
		CompositorTimeout: envDur("TC_TIMEOUT_SEC", 15) * time.Second,
		SearchTimeout:     envDur("SEARCH_TIMEOUT_SEC", 30) * time.Second,
		CacheTTL:          envDur("CACHE_TTL_SEC", 300) * time.Second,
		CacheMaxEntries:   envInt("CACHE_MAX_ENTRIES", 1000),
		CacheSweep:        envDur("CACHE_SWEEP_SEC", 0) * time.Second,
		RedisURL:          env("REDIS_URL", ""),
		DatabaseURL:       env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — booking archive disabled")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return i
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
