package admission

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FixedWindow is the classic counter-per-window limiter: one atomic increment
// per request against a counter that expires at the end of the window. O(1)
// storage per key, but a burst straddling a window boundary can see up to
// twice the limit.
type FixedWindow struct {
	store     CounterStore
	namespace string
	policy    Policy
	logger    *zap.Logger
	recorder  MetricsRecorder
}

var (
	_ AdjustableLimiter = (*FixedWindow)(nil)
	_ Uncounter         = (*FixedWindow)(nil)
)

// NewFixedWindow constructs a fixed-window limiter. The namespace prefixes
// every key so distinct policies never collide in the store.
func NewFixedWindow(store CounterStore, namespace string, policy Policy, opts ...Option) (*FixedWindow, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	s := applyOptions(opts)
	return &FixedWindow{
		store:     store,
		namespace: namespace,
		policy:    policy,
		logger:    s.logger,
		recorder:  s.recorder,
	}, nil
}

// Policy returns the configured (limit, window) pair.
func (f *FixedWindow) Policy() Policy { return f.policy }

func (f *FixedWindow) Check(ctx context.Context, key string) Decision {
	return f.CheckAdjusted(ctx, key, f.policy.Limit, f.policy.Window)
}

func (f *FixedWindow) CheckAdjusted(ctx context.Context, key string, limit int64, window time.Duration) Decision {
	tags := map[string]string{"namespace": f.namespace}
	f.recorder.Add("admission.check", 1, tags)

	start := time.Now()
	count, ttl, err := f.store.IncrWindow(ctx, f.namespace+":"+key, window)
	f.recorder.Observe("admission.latency", time.Since(start).Seconds(), tags)
	if err != nil {
		f.recorder.Add("admission.fail_open", 1, tags)
		f.logger.Warn("admission store unavailable, failing open",
			zap.String("namespace", f.namespace),
			zap.String("key", key),
			zap.Error(err))
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   time.Now().Add(window),
		}
	}

	resetAt := time.Now().Add(ttl)
	if count > limit {
		f.recorder.Add("admission.denied", 1, tags)
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: ttl,
		}
	}
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}
}

// Uncount undoes one admitted request after the fact, for skip-on-success or
// skip-on-failure policies. Best effort: a failure is logged and swallowed,
// since the request it compensates for has already been processed.
func (f *FixedWindow) Uncount(ctx context.Context, key string) {
	if err := f.store.DecrWindow(ctx, f.namespace+":"+key); err != nil {
		f.logger.Debug("compensating decrement failed",
			zap.String("namespace", f.namespace),
			zap.String("key", key),
			zap.Error(err))
	}
}
