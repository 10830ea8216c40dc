package admission

import (
	"context"
	"sync"
	"time"
)

type memCounter struct {
	count     int64
	expiresAt time.Time
}

type memEntry struct {
	at     time.Time
	member string
}

// MemoryStore is an in-process CounterStore.
//
// It is safe for concurrent use by multiple goroutines, but its state is local
// to the process and is not shared across replicas. Use RedisStore when you
// need a single global budget across multiple instances; MemoryStore is the
// fast, dependency-free stand-in for unit tests and single-instance
// deployments. Expiry is enforced lazily, on access.
type MemoryStore struct {
	mu         sync.Mutex
	counters   map[string]*memCounter
	logs       map[string][]memEntry
	violations map[string]*memCounter
}

var _ CounterStore = (*MemoryStore)(nil)

// NewMemoryStore constructs a MemoryStore with empty state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters:   make(map[string]*memCounter),
		logs:       make(map[string][]memEntry),
		violations: make(map[string]*memCounter),
	}
}

func (m *MemoryStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c, ok := m.counters[key]
	if !ok || !c.expiresAt.After(now) {
		c = &memCounter{expiresAt: now.Add(window)}
		m.counters[key] = c
	}
	c.count++
	return c.count, c.expiresAt.Sub(now), nil
}

func (m *MemoryStore) DecrWindow(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok || !c.expiresAt.After(time.Now()) || c.count <= 0 {
		return nil
	}
	c.count--
	return nil
}

func (m *MemoryStore) TakeSliding(ctx context.Context, key string, limit int64, window time.Duration, member string) (int64, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	entries := m.logs[key]
	pruned := entries[:0]
	for _, e := range entries {
		if e.at.After(cutoff) {
			pruned = append(pruned, e)
		}
	}

	count := int64(len(pruned))
	allowed := false
	if count < limit {
		pruned = append(pruned, memEntry{at: now, member: member})
		count++
		allowed = true
	}
	m.logs[key] = pruned

	var oldest time.Time
	if len(pruned) > 0 {
		oldest = pruned[0].at
	}
	return count, oldest, allowed, nil
}

func (m *MemoryStore) Violations(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.violations[key]
	if !ok || !v.expiresAt.After(time.Now()) {
		return 0, nil
	}
	return v.count, nil
}

func (m *MemoryStore) RecordViolation(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	v, ok := m.violations[key]
	if !ok || !v.expiresAt.After(now) {
		v = &memCounter{}
		m.violations[key] = v
	}
	v.count++
	v.expiresAt = now.Add(ttl)
	return v.count, nil
}
