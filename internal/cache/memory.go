package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache keeps entries in process memory. Expired entries are dropped
// when read and by Sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	opts    Options
	now     func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates an in-memory cache
func NewMemoryCache(opts Options) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		opts:    opts,
		now:     time.Now,
	}
}

// Get retrieves a value from the cache
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullKey := m.opts.Prefix + key

	m.mu.RLock()
	e, ok := m.entries[fullKey]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	if e.expired(m.now()) {
		m.mu.Lock()
		delete(m.entries, fullKey)
		m.mu.Unlock()
		return nil, ErrCacheMiss{Key: key}
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value in the cache with a TTL
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.opts.DefaultTTL
	}

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[m.opts.Prefix+key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes a value from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.entries, m.opts.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes all values under the prefix
func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, m.opts.Prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// Exists checks if a key exists in the cache
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if IsCacheMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Sweep drops expired entries and returns how many were removed
func (m *MemoryCache) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op
func (m *MemoryCache) Close() error {
	return nil
}
