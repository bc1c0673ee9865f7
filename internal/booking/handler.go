// internal/booking/handler.go
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"roadbook/internal/compositor"
	"roadbook/internal/resolver"
	"roadbook/pkg/cache"
	"roadbook/pkg/credentials"
	"roadbook/pkg/metrics"
	"roadbook/pkg/middleware"
	"roadbook/pkg/store"
)

// Handler exposes the resolver over HTTP. Store may be nil (archive
// disabled); everything else is required.
type Handler struct {
	Log           *zap.SugaredLogger
	Registry      *credentials.Registry
	Resolver      *resolver.Resolver
	Cache         cache.Cache
	Store         *store.Store
	SearchTimeout time.Duration
	CacheTTL      time.Duration
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/bookings/{reference}", h.lookup)
	r.Get("/v1/archive/{reference}", h.archived)
	r.Get("/v1/configs", h.configs)
	r.Get("/v1/cache/stats", h.cacheStats)
	r.Delete("/v1/cache", h.cacheClear)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "reference")
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "missing booking reference"})
		return
	}

	key := "booking:" + ref
	if v, ok := h.Cache.Get(ctx, key); ok {
		if stored, ok := v.(map[string]any); ok {
			metrics.CacheHits.Inc()
			// shallow copy so the cached entry itself stays unmarked
			resp := make(map[string]any, len(stored)+1)
			for k, val := range stored {
				resp[k] = val
			}
			resp["cached"] = true
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}
	metrics.CacheMisses.Inc()

	timeout := h.SearchTimeout
	if ms, err := strconv.Atoi(r.URL.Query().Get("timeoutMs")); err == nil && ms > 0 && time.Duration(ms)*time.Millisecond < timeout {
		timeout = time.Duration(ms) * time.Millisecond
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := h.Resolver.Search(sctx, ref)
	if err != nil {
		if errors.Is(err, resolver.ErrNoTenants) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "no tenants configured"})
			return
		}
		h.Log.Errorw("search", "ref", ref, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "search failed"})
		return
	}

	resp := map[string]any{
		"success":          res.Booking != nil,
		"booking":          nil,
		"foundInMicrosite": res.FoundInMicrosite,
		"cached":           false,
		"attempts":         res.Attempts,
		"totalTimeMs":      res.TotalTime.Milliseconds(),
	}
	if res.Booking != nil {
		resp["booking"] = res.Booking.Raw
		resp["summary"] = res.Booking.Summary()
		h.Cache.Set(ctx, key, resp, h.CacheTTL)
	}
	writeJSON(w, http.StatusOK, resp)

	if h.Store != nil {
		reqID := middleware.RequestIDFrom(ctx)
		if res.Booking != nil {
			if err := h.Store.SaveBooking(ctx, ref, res.FoundInMicrosite, res.Booking.Raw); err != nil {
				h.Log.Warnw("archive booking", "ref", ref, "err", err)
			}
		}
		h.Store.LogSearch(ctx, ref, res.Booking != nil, res.FoundInMicrosite, len(res.Attempts), res.TotalTime.Milliseconds(), reqID)
	}
}

func (h *Handler) archived(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"success": false, "error": "archive disabled"})
		return
	}
	ref := chi.URLParam(r, "reference")
	payload, micrositeID, err := h.Store.GetBooking(r.Context(), ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "not archived"})
			return
		}
		h.Log.Errorw("archive read", "ref", ref, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "archive read failed"})
		return
	}
	b := compositor.Booking{Raw: payload}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"booking":          payload,
		"summary":          b.Summary(),
		"foundInMicrosite": micrositeID,
	})
}

func (h *Handler) configs(w http.ResponseWriter, r *http.Request) {
	type slot struct {
		ConfigID    int    `json:"configId"`
		MicrositeID string `json:"micrositeId"`
	}
	var slots []slot
	for _, c := range h.Registry.All() {
		slots = append(slots, slot{ConfigID: c.ConfigID, MicrositeID: c.MicrositeID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": slots})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Cache.Stats(r.Context()))
}

func (h *Handler) cacheClear(w http.ResponseWriter, r *http.Request) {
	h.Cache.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
