// cmd/booking-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roadbook/internal/booking"
	"roadbook/internal/resolver"
	"roadbook/pkg/cache"
	"roadbook/pkg/config"
	"roadbook/pkg/credentials"
	"roadbook/pkg/db"
	"roadbook/pkg/logger"
	"roadbook/pkg/middleware"
	"roadbook/pkg/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	pool := db.MustConnect(cfg, log)
	rdb := db.MustRedis(cfg, log)

	reg := credentials.FromEnv(log)
	if len(reg.List()) == 0 {
		log.Warnw("no tenant credentials configured — lookups will fail until TRAVEL_COMPOSITOR_* is set")
	}

	var respCache cache.Cache
	if rdb != nil {
		respCache = cache.NewRedis(rdb)
	} else {
		mem := cache.NewMemory(cfg.CacheMaxEntries)
		if cfg.CacheSweep > 0 {
			mem.StartSweep(cfg.CacheSweep)
			defer mem.Close()
		}
		respCache = mem
	}

	var archive *store.Store
	if pool != nil {
		if err := store.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		archive = store.New(pool, log)
	}

	res := resolver.New(reg, cfg.CompositorBaseURL, cfg.CompositorTimeout, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.CORS())
	r.Use(middleware.Tracing())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("pong")) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	h := &booking.Handler{
		Log:           log,
		Registry:      reg,
		Resolver:      res,
		Cache:         respCache,
		Store:         archive,
		SearchTimeout: cfg.SearchTimeout,
		CacheTTL:      cfg.CacheTTL,
	}
	h.Register(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infow("booking-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("booking-service stopped")
}
