package admission

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of a single admission check. It is never persisted;
// every check recomputes it from the shared store.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the effective limit the check was evaluated against. Layers
	// such as Progressive may report a tighter value than the configured one.
	Limit int64
	// Remaining is the quota left after this check has been applied, i.e. an
	// admitted request is already counted against it.
	Remaining int64
	// ResetAt is when the current window expires and the quota refills.
	ResetAt time.Time
	// RetryAfter is 0 when allowed; when denied it is the duration until
	// ResetAt, suitable for a Retry-After header.
	RetryAfter time.Duration
}

// Policy is one (limit, window) pair. Policies are plain values: construct
// them at startup, validate them once, and pass them into the pipeline.
type Policy struct {
	Limit  int64
	Window time.Duration
}

func (p Policy) validate() error {
	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalidPolicy, p.Limit)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: window %s", ErrInvalidPolicy, p.Window)
	}
	return nil
}

// Limiter decides whether the request identified by key is admitted right now.
//
// Implementations never return a store error: when the shared store is
// unreachable they fail open (admit and log), so an admission-control outage
// cannot become a total-service outage.
type Limiter interface {
	Check(ctx context.Context, key string) Decision
}

// AdjustableLimiter is a Limiter whose configured policy can be overridden for
// a single check. Wrapping layers (Progressive, the deny-list path of Engine)
// use it to re-weight a base limiter without rebuilding it.
type AdjustableLimiter interface {
	Limiter
	CheckAdjusted(ctx context.Context, key string, limit int64, window time.Duration) Decision
}

// Uncounter is implemented by limiters that support a best-effort compensating
// decrement after the response outcome is known (skip-on-success and
// skip-on-failure policies). Failures are swallowed: the admission decision
// has already been made.
type Uncounter interface {
	Uncount(ctx context.Context, key string)
}
