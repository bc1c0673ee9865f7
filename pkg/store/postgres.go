// pkg/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("booking not archived")

// Store archives resolved bookings and logs search outcomes. Plain row CRUD;
// the managed Postgres provider owns everything beyond that.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

func New(pool *pgxpool.Pool, log *zap.SugaredLogger) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool, log: log}
}

// EnsureSchema creates the archive tables if absent. Idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bookings (
  reference text PRIMARY KEY,
  microsite_id text NOT NULL,
  payload jsonb NOT NULL,
  resolved_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS search_events (
  id BIGSERIAL PRIMARY KEY,
  booking_ref text NOT NULL,
  found boolean NOT NULL,
  microsite_id text,
  attempts int NOT NULL,
  duration_ms int NOT NULL,
  request_id text,
  created_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS search_events_ref_idx ON search_events(booking_ref);
`)
	return err
}

// SaveBooking upserts the raw payload under its reference.
func (s *Store) SaveBooking(ctx context.Context, ref, micrositeID string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO bookings(reference, microsite_id, payload, resolved_at)
	  VALUES ($1,$2,$3,NOW())
	  ON CONFLICT (reference) DO UPDATE SET microsite_id=EXCLUDED.microsite_id, payload=EXCLUDED.payload, resolved_at=NOW()`,
		ref, micrositeID, raw)
	return err
}

// GetBooking returns the archived payload and the microsite it came from.
func (s *Store) GetBooking(ctx context.Context, ref string) (map[string]any, string, error) {
	var raw []byte
	var micrositeID string
	err := s.pool.QueryRow(ctx, `SELECT payload, microsite_id FROM bookings WHERE reference=$1`, ref).Scan(&raw, &micrositeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", err
	}
	return payload, micrositeID, nil
}

// LogSearch records one resolver call for observability.
func (s *Store) LogSearch(ctx context.Context, ref string, found bool, micrositeID string, attempts int, durationMs int64, requestID string) {
	_, err := s.pool.Exec(ctx, `INSERT INTO search_events(booking_ref, found, microsite_id, attempts, duration_ms, request_id)
	  VALUES ($1,$2,$3,$4,$5,$6)`, ref, found, micrositeID, attempts, durationMs, requestID)
	if err != nil {
		s.log.Warnw("log search", "err", err)
	}
}
