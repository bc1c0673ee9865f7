// internal/resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"roadbook/internal/compositor"
	"roadbook/pkg/credentials"
	"roadbook/pkg/metrics"
)

// ErrNoTenants is the only caller-visible failure: zero configured tenants is
// a deployment mistake, not a "not found".
var ErrNoTenants = errors.New("no tenants configured")

// BookingSource is the slice of the compositor client the resolver needs.
type BookingSource interface {
	MicrositeID() string
	GetBooking(ctx context.Context, ref string) (*compositor.Booking, error)
	ListBookings(ctx context.Context, from, to string, first, limit int) ([]compositor.Booking, error)
}

// Attempt records one tenant probe, success or not.
type Attempt struct {
	ConfigID       int    `json:"configId"`
	MicrositeID    string `json:"micrositeId"`
	Success        bool   `json:"success"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Error          string `json:"error,omitempty"`
}

// Result always carries the full attempt list, found or not.
type Result struct {
	Booking          *compositor.Booking `json:"booking"`
	FoundInMicrosite string              `json:"foundInMicrosite,omitempty"`
	Attempts         []Attempt           `json:"attempts"`
	TotalTime        time.Duration       `json:"-"`
}

// Resolver fans a booking lookup out across every configured tenant.
//
// Tie-break policy: enumeration-order first-match. All tenants are probed
// concurrently, but the returned booking is always the one from the
// lowest-numbered slot that found it, regardless of which probe finished
// first. Probes below the winner are cancelled once it is decided.
type Resolver struct {
	reg       *credentials.Registry
	newSource func(credentials.TenantConfig) BookingSource
	log       *zap.SugaredLogger

	// one client per slot, built lazily and reused so tenant auth
	// sessions persist across searches
	mu      sync.Mutex
	sources map[int]BookingSource

	// fallback listing window
	scanFrom  string
	scanLimit int
}

func New(reg *credentials.Registry, baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Resolver {
	return NewWithSource(reg, func(cfg credentials.TenantConfig) BookingSource {
		return compositor.New(cfg, baseURL, timeout, log)
	}, log)
}

// NewWithSource injects the per-tenant client constructor; tests substitute
// fakes here.
func NewWithSource(reg *credentials.Registry, newSource func(credentials.TenantConfig) BookingSource, log *zap.SugaredLogger) *Resolver {
	return &Resolver{
		reg:       reg,
		newSource: newSource,
		log:       log,
		sources:   map[int]BookingSource{},
		scanFrom:  "2020-01-01",
		scanLimit: 200,
	}
}

type outcome struct {
	attempt Attempt
	booking *compositor.Booking
}

// Search probes all tenants for bookingID. Not-found is not an error: the
// result carries a nil Booking and one attempt per tenant. The caller's ctx
// deadline bounds the whole call; unfinished probes are reported as attempts
// with an error instead of being waited on.
func (r *Resolver) Search(ctx context.Context, bookingID string) (Result, error) {
	start := time.Now()
	configs := r.reg.All()
	if len(configs) == 0 {
		return Result{}, ErrNoTenants
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(configs)
	outcomes := make([]outcome, n)
	done := make([]chan struct{}, n)
	for i := range configs {
		done[i] = make(chan struct{})
		go func(i int, cfg credentials.TenantConfig) {
			defer close(done[i])
			outcomes[i] = r.probe(ctx, cfg, bookingID)
		}(i, configs[i])
	}

	// Consume in enumeration order so the lowest slot with a hit wins.
	winner := -1
	expired := false
	for i := 0; i < n && winner < 0 && !expired; i++ {
		select {
		case <-done[i]:
			if outcomes[i].booking != nil {
				winner = i
			}
		case <-ctx.Done():
			expired = true
		}
	}
	cancel()

	// Collect attempts in slot order. If the deadline hit before the ordered
	// wait decided a winner, the first completed success still wins; slots
	// abandoned mid-flight forfeit.
	res := Result{Attempts: make([]Attempt, 0, n)}
	for i := range configs {
		select {
		case <-done[i]:
			res.Attempts = append(res.Attempts, outcomes[i].attempt)
			if winner < 0 && outcomes[i].booking != nil {
				winner = i
			}
		default:
			msg := "abandoned: search already resolved"
			if expired {
				msg = "abandoned: search deadline reached"
			}
			res.Attempts = append(res.Attempts, Attempt{
				ConfigID:       configs[i].ConfigID,
				MicrositeID:    configs[i].MicrositeID,
				Success:        false,
				ResponseTimeMs: time.Since(start).Milliseconds(),
				Error:          msg,
			})
		}
	}
	if winner >= 0 {
		res.Booking = outcomes[winner].booking
		res.FoundInMicrosite = configs[winner].MicrositeID
	}
	res.TotalTime = time.Since(start)

	switch {
	case res.Booking != nil:
		metrics.SearchesTotal.WithLabelValues("found").Inc()
	case expired:
		metrics.SearchesTotal.WithLabelValues("error").Inc()
	default:
		metrics.SearchesTotal.WithLabelValues("not_found").Inc()
	}
	r.log.Infow("booking search",
		"ref", bookingID,
		"found", res.Booking != nil,
		"microsite", res.FoundInMicrosite,
		"attempts", len(res.Attempts),
		"total_ms", res.TotalTime.Milliseconds())
	return res, nil
}

func (r *Resolver) source(cfg credentials.TenantConfig) BookingSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sources[cfg.ConfigID]; ok {
		return s
	}
	s := r.newSource(cfg)
	r.sources[cfg.ConfigID] = s
	return s
}

// probe tries the direct lookup first and falls back to a listing scan when
// the tenant answers but has no record under that exact reference.
func (r *Resolver) probe(ctx context.Context, cfg credentials.TenantConfig, bookingID string) outcome {
	src := r.source(cfg)
	start := time.Now()
	att := Attempt{ConfigID: cfg.ConfigID, MicrositeID: cfg.MicrositeID}

	finish := func(b *compositor.Booking, err error) outcome {
		att.ResponseTimeMs = time.Since(start).Milliseconds()
		label := "error"
		if b != nil {
			att.Success = true
			label = "found"
		} else if err != nil {
			att.Error = err.Error()
			var nf *compositor.NotFoundError
			if errors.As(err, &nf) {
				label = "not_found"
			}
		}
		metrics.AttemptDuration.WithLabelValues(cfg.MicrositeID, label).Observe(time.Since(start).Seconds())
		return outcome{attempt: att, booking: b}
	}

	b, err := src.GetBooking(ctx, bookingID)
	if err == nil {
		return finish(b, nil)
	}
	var nf *compositor.NotFoundError
	if !errors.As(err, &nf) || ctx.Err() != nil {
		return finish(nil, err)
	}

	// Direct miss: scan the listing for id / reference / customReference.
	to := time.Now().AddDate(2, 0, 0).Format("2006-01-02")
	list, lerr := src.ListBookings(ctx, r.scanFrom, to, 0, r.scanLimit)
	if lerr != nil {
		return finish(nil, err)
	}
	for i := range list {
		if list[i].MatchesReference(bookingID) {
			return finish(&list[i], nil)
		}
	}
	return finish(nil, err)
}
