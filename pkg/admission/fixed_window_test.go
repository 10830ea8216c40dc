package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindow_Validation(t *testing.T) {
	store := NewMemoryStore()

	_, err := NewFixedWindow(nil, "fw", Policy{Limit: 1, Window: time.Second})
	assert.ErrorIs(t, err, ErrNilStore)

	_, err = NewFixedWindow(store, "fw", Policy{Limit: 0, Window: time.Second})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = NewFixedWindow(store, "fw", Policy{Limit: 5, Window: -time.Second})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestFixedWindow_Scenario(t *testing.T) {
	// limit=5, window=60s: checks 1-5 admitted with remaining 4..0, check 6
	// denied with retry_after within the window.
	ctx := context.Background()
	lim, err := NewFixedWindow(NewMemoryStore(), "fw", Policy{Limit: 5, Window: 60 * time.Second})
	require.NoError(t, err)

	for i := int64(0); i < 5; i++ {
		dec := lim.Check(ctx, "k1")
		require.True(t, dec.Allowed, "check %d should be admitted", i+1)
		assert.Equal(t, int64(4)-i, dec.Remaining)
		assert.Equal(t, int64(5), dec.Limit)
	}

	dec := lim.Check(ctx, "k1")
	assert.False(t, dec.Allowed)
	assert.Equal(t, int64(0), dec.Remaining)
	assert.Greater(t, dec.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, dec.RetryAfter, 60*time.Second)

	// other keys are unaffected
	assert.True(t, lim.Check(ctx, "k2").Allowed)
}

func TestFixedWindow_WindowReset(t *testing.T) {
	ctx := context.Background()
	lim, err := NewFixedWindow(NewMemoryStore(), "fw", Policy{Limit: 2, Window: 60 * time.Millisecond})
	require.NoError(t, err)

	require.True(t, lim.Check(ctx, "k").Allowed)
	require.True(t, lim.Check(ctx, "k").Allowed)
	require.False(t, lim.Check(ctx, "k").Allowed)

	time.Sleep(90 * time.Millisecond)

	dec := lim.Check(ctx, "k")
	assert.True(t, dec.Allowed, "a fresh window should behave as if no prior requests occurred")
	assert.Equal(t, int64(1), dec.Remaining)
}

func TestFixedWindow_Uncount(t *testing.T) {
	ctx := context.Background()
	lim, err := NewFixedWindow(NewMemoryStore(), "fw", Policy{Limit: 1, Window: time.Minute})
	require.NoError(t, err)

	require.True(t, lim.Check(ctx, "k").Allowed)
	lim.Uncount(ctx, "k")
	assert.True(t, lim.Check(ctx, "k").Allowed, "compensated request should not count toward the limit")

	// uncount against a failing store is swallowed
	failing, err := NewFixedWindow(failingStore{}, "fw", Policy{Limit: 1, Window: time.Minute})
	require.NoError(t, err)
	failing.Uncount(ctx, "k")
}

func TestFixedWindow_FailOpen(t *testing.T) {
	ctx := context.Background()
	rec := newMockRecorder()
	lim, err := NewFixedWindow(failingStore{}, "fw", Policy{Limit: 1, Window: time.Minute},
		WithRecorder(rec))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		dec := lim.Check(ctx, "k")
		assert.True(t, dec.Allowed, "store outage must fail open")
	}
	assert.Equal(t, float64(10), rec.counters["admission.fail_open"])
	assert.Equal(t, float64(10), rec.counters["admission.check"])
}

func TestFixedWindow_ConcurrentMonotonicity(t *testing.T) {
	// With limit=100 and 100 concurrent callers, all are admitted and the
	// 101st is denied regardless of interleaving.
	ctx := context.Background()
	lim, err := NewFixedWindow(NewMemoryStore(), "fw", Policy{Limit: 100, Window: time.Minute})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	wg.Add(100)
	for i := 0; i < 100; i++ {
		go func() {
			defer wg.Done()
			if lim.Check(ctx, "k").Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, admitted)
	assert.False(t, lim.Check(ctx, "k").Allowed, "101st check should be denied")
}

func TestFixedWindow_Metrics(t *testing.T) {
	ctx := context.Background()
	rec := newMockRecorder()
	lim, err := NewFixedWindow(NewMemoryStore(), "fw", Policy{Limit: 1, Window: time.Minute},
		WithRecorder(rec))
	require.NoError(t, err)

	lim.Check(ctx, "k")
	lim.Check(ctx, "k")

	assert.Equal(t, float64(2), rec.counters["admission.check"])
	assert.Equal(t, float64(1), rec.counters["admission.denied"])
	require.Len(t, rec.timings["admission.latency"], 2)
}

func BenchmarkFixedWindow_Check(b *testing.B) {
	ctx := context.Background()
	lim, err := NewFixedWindow(NewMemoryStore(), "fw", Policy{Limit: 1 << 30, Window: time.Hour})
	if err != nil {
		b.Fatal(err)
	}

	for i := 0; i < b.N; i++ {
		lim.Check(ctx, "k")
	}
}
