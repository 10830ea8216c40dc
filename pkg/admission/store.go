package admission

import (
	"context"
	"time"
)

// CounterStore is the abstraction over the shared low-latency store the
// limiters coordinate through. Implementations must make each operation
// atomic with respect to concurrent callers, including callers in other
// processes; correctness depends entirely on the store's guarantees, not on
// in-process synchronization.
//
// Keys passed in are already namespaced per policy; implementations may add a
// deployment-wide prefix on top.
type CounterStore interface {
	// IncrWindow atomically increments the window counter for key, setting
	// its expiry to window only when the key was just created, and returns
	// the post-increment count together with the remaining time to live.
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// DecrWindow decrements the window counter for key as a compensating
	// action. A missing or zero counter is a no-op; the count never goes
	// negative.
	DecrWindow(ctx context.Context, key string) error

	// TakeSliding prunes log entries older than now-window, counts the
	// survivors and, when the count is below limit, appends member tagged
	// with now and refreshes the log's expiry. It returns the surviving
	// count (including the appended member when admitted), the timestamp of
	// the oldest surviving entry (zero when the log is empty) and whether
	// the member was appended.
	TakeSliding(ctx context.Context, key string, limit int64, window time.Duration, member string) (count int64, oldest time.Time, allowed bool, err error)

	// Violations returns the violation count for key, 0 when absent.
	Violations(ctx context.Context, key string) (int64, error)

	// RecordViolation increments the violation counter for key and resets
	// its independent expiry to ttl, returning the new count.
	RecordViolation(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
