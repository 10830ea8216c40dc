package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IncrWindow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	count, ttl, err := store.IncrWindow(ctx, "w:k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Greater(t, ttl, 59*time.Second)

	count, _, err = store.IncrWindow(ctx, "w:k1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// distinct keys do not share counters
	count, _, err = store.IncrWindow(ctx, "w:k2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 3; i++ {
		_, _, err := store.IncrWindow(ctx, "w:k", 50*time.Millisecond)
		require.NoError(t, err)
	}
	time.Sleep(80 * time.Millisecond)

	count, _, err := store.IncrWindow(ctx, "w:k", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "expired window should start fresh")
}

func TestMemoryStore_DecrWindowFloor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// decrement of a missing key is a no-op
	require.NoError(t, store.DecrWindow(ctx, "w:gone"))

	_, _, err := store.IncrWindow(ctx, "w:k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.DecrWindow(ctx, "w:k"))
	require.NoError(t, store.DecrWindow(ctx, "w:k")) // already at zero

	count, _, err := store.IncrWindow(ctx, "w:k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "counter must never go negative")
}

func TestMemoryStore_TakeSliding(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 2; i++ {
		count, _, allowed, err := store.TakeSliding(ctx, "s:k", 2, time.Minute, uniqueMember(i))
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, int64(i+1), count)
	}

	count, oldest, allowed, err := store.TakeSliding(ctx, "s:k", 2, time.Minute, "m3")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(2), count)
	assert.False(t, oldest.IsZero())
}

func TestMemoryStore_TakeSlidingPrunes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	window := 60 * time.Millisecond
	_, _, allowed, err := store.TakeSliding(ctx, "s:k", 1, window, "m1")
	require.NoError(t, err)
	require.True(t, allowed)

	_, _, allowed, err = store.TakeSliding(ctx, "s:k", 1, window, "m2")
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(90 * time.Millisecond)

	count, _, allowed, err := store.TakeSliding(ctx, "s:k", 1, window, "m3")
	require.NoError(t, err)
	assert.True(t, allowed, "entries older than the window must be pruned")
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_Violations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	v, err := store.Violations(ctx, "v:k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "absent counter reads as zero")

	for i := int64(1); i <= 3; i++ {
		n, err := store.RecordViolation(ctx, "v:k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	v, err = store.Violations(ctx, "v:k")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestMemoryStore_ViolationExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.RecordViolation(ctx, "v:k", 40*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(70 * time.Millisecond)

	v, err := store.Violations(ctx, "v:k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "expired counter decays to zero")
}

func uniqueMember(i int) string {
	return string(rune('a' + i))
}
