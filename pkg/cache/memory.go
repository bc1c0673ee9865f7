// pkg/cache/memory.go
package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value    any
	storedAt time.Time
	expireAt time.Time
}

// Memory is a TTL map with lazy eviction: expired entries are removed when a
// Get or Has touches them, so they still count toward Size until then. An
// optional MaxEntries bound evicts the oldest-stored entry on overflow.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memEntry
	hits       int64
	misses     int64
	maxEntries int

	now  func() time.Time
	stop chan struct{}
}

func NewMemory(maxEntries int) *Memory {
	return &Memory{
		entries:    map[string]memEntry{},
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	if m.now().After(e.expireAt) {
		delete(m.entries, key)
		m.misses++
		return nil, false
	}
	m.hits++
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[key] = memEntry{value: value, storedAt: now, expireAt: now.Add(ttl)}
}

// Has does not count toward hit/miss stats, but still evicts lazily.
func (m *Memory) Has(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return false
	}
	if m.now().After(e.expireAt) {
		delete(m.entries, key)
		return false
	}
	return true
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]memEntry{}
	m.hits, m.misses = 0, 0
}

func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Hits: m.hits, Misses: m.misses, Size: int64(len(m.entries))}
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range m.entries {
		if first || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
			first = false
		}
	}
	if !first {
		delete(m.entries, oldestKey)
	}
}

// StartSweep runs a background janitor removing expired entries every
// interval. Close stops it. Both are safe to call more than once and from
// concurrent goroutines.
func (m *Memory) StartSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.sweep()
			case <-stop:
				return
			}
		}
	}()
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if now.After(e.expireAt) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}
