package admission

import (
	"context"
	"errors"
	"time"
)

// failingStore simulates an unreachable shared store: every operation errors.
type failingStore struct{}

var errStoreDown = errors.New("store unreachable")

func (failingStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errStoreDown
}

func (failingStore) DecrWindow(ctx context.Context, key string) error {
	return errStoreDown
}

func (failingStore) TakeSliding(ctx context.Context, key string, limit int64, window time.Duration, member string) (int64, time.Time, bool, error) {
	return 0, time.Time{}, false, errStoreDown
}

func (failingStore) Violations(ctx context.Context, key string) (int64, error) {
	return 0, errStoreDown
}

func (failingStore) RecordViolation(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errStoreDown
}

// mockRecorder captures metrics in memory for assertion.
type mockRecorder struct {
	counters map[string]float64
	timings  map[string][]float64
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		counters: make(map[string]float64),
		timings:  make(map[string][]float64),
	}
}

func (m *mockRecorder) Add(name string, value float64, tags map[string]string) {
	m.counters[name] += value
}

func (m *mockRecorder) Observe(name string, value float64, tags map[string]string) {
	m.timings[name] = append(m.timings[name], value)
}
