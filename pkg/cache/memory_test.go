package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedMemory(max int) (*Memory, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(max)
	m.now = clk.now
	return m, clk
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, clk := newClockedMemory(0)

	m.Set(ctx, "k", "v", 5*time.Minute)
	v, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clk.advance(5*time.Minute + time.Second)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryLazyEviction(t *testing.T) {
	ctx := context.Background()
	m, clk := newClockedMemory(0)

	m.Set(ctx, "k", 1, time.Minute)
	clk.advance(2 * time.Minute)

	// expired but untouched: still counted in Size
	assert.Equal(t, int64(1), m.Stats(ctx).Size)

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), m.Stats(ctx).Size)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m, _ := newClockedMemory(0)

	m.Set(ctx, "a", 1, time.Minute)
	m.Get(ctx, "a")
	m.Get(ctx, "a")
	m.Get(ctx, "missing")

	st := m.Stats(ctx)
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Size)

	m.Clear(ctx)
	st = m.Stats(ctx)
	assert.Equal(t, Stats{}, st)
}

func TestMemoryHasDoesNotCountStats(t *testing.T) {
	ctx := context.Background()
	m, clk := newClockedMemory(0)

	m.Set(ctx, "k", 1, time.Minute)
	assert.True(t, m.Has(ctx, "k"))
	assert.False(t, m.Has(ctx, "other"))
	assert.Equal(t, Stats{Size: 1}, m.Stats(ctx))

	// Has still evicts lazily
	clk.advance(2 * time.Minute)
	assert.False(t, m.Has(ctx, "k"))
	assert.Equal(t, Stats{}, m.Stats(ctx))
}

func TestMemoryMaxEntriesEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m, clk := newClockedMemory(2)

	m.Set(ctx, "first", 1, time.Hour)
	clk.advance(time.Second)
	m.Set(ctx, "second", 2, time.Hour)
	clk.advance(time.Second)
	m.Set(ctx, "third", 3, time.Hour)

	assert.False(t, m.Has(ctx, "first"))
	assert.True(t, m.Has(ctx, "second"))
	assert.True(t, m.Has(ctx, "third"))
}

func TestMemoryOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m, _ := newClockedMemory(2)

	m.Set(ctx, "a", 1, time.Hour)
	m.Set(ctx, "b", 2, time.Hour)
	m.Set(ctx, "a", 3, time.Hour)

	v, ok := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, m.Has(ctx, "b"))
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m, clk := newClockedMemory(0)

	m.Set(ctx, "k", 1, time.Minute)
	clk.advance(2 * time.Minute)
	m.sweep()
	assert.Equal(t, int64(0), m.Stats(ctx).Size)
}

func TestMemorySweepLifecycle(t *testing.T) {
	ctx := context.Background()
	m, clk := newClockedMemory(0)

	m.StartSweep(5 * time.Millisecond)
	m.StartSweep(5 * time.Millisecond) // second call is a no-op

	m.Set(ctx, "k", 1, time.Minute)
	clk.advance(2 * time.Minute)
	assert.Eventually(t, func() bool {
		return m.Stats(ctx).Size == 0
	}, time.Second, 10*time.Millisecond)

	m.Close()
	m.Close() // idempotent
}
