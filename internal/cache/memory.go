package cache

import (
	"context"
	"sync"
	"time"
)

// Memory implements Cache using in-memory storage.
type Memory[V any] struct {
	mu    sync.RWMutex
	items map[string]Entry[V]
	stats Stats
	now   func() time.Time
}

// NewMemory creates a new in-memory cache.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{
		items: make(map[string]Entry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value from the cache.
func (m *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.items[key]
	if !ok || entry.IsExpired(m.now()) {
		m.stats.Misses++
		var zero V
		return zero, false
	}
	m.stats.Hits++
	return entry.Value, true
}

// Set stores a value in the cache. A ttl of NoExpiry keeps the entry until it is deleted.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Entry[V]{Value: value}
	if ttl != NoExpiry {
		entry.ExpiresAt = m.now().Add(ttl)
	}
	m.items[key] = entry
}

// Delete removes a value from the cache.
func (m *Memory[V]) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
}

// Clear removes all values and resets the statistics.
func (m *Memory[V]) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]Entry[V])
	m.stats = Stats{}
}

// Len returns the number of items in the cache (including expired).
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Stats returns the hit and miss counts since creation or the last Clear.
func (m *Memory[V]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.stats
}

// Ensure Memory implements Cache interface
var _ Cache[string] = (*Memory[string])(nil)
