package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlidingWindow is the timestamp-log limiter: each arrival is recorded in a
// per-key sorted set and a request is admitted only when fewer than limit
// arrivals survive in the trailing window. Admission stays smooth across
// window boundaries, at the cost of O(limit) storage per key instead of O(1).
//
// Each log entry carries a UUID member so simultaneous arrivals in the same
// microsecond never collapse into one.
type SlidingWindow struct {
	store     CounterStore
	namespace string
	policy    Policy
	logger    *zap.Logger
	recorder  MetricsRecorder
}

var _ AdjustableLimiter = (*SlidingWindow)(nil)

// NewSlidingWindow constructs a sliding-window-log limiter.
func NewSlidingWindow(store CounterStore, namespace string, policy Policy, opts ...Option) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	s := applyOptions(opts)
	return &SlidingWindow{
		store:     store,
		namespace: namespace,
		policy:    policy,
		logger:    s.logger,
		recorder:  s.recorder,
	}, nil
}

// Policy returns the configured (limit, window) pair.
func (w *SlidingWindow) Policy() Policy { return w.policy }

func (w *SlidingWindow) Check(ctx context.Context, key string) Decision {
	return w.CheckAdjusted(ctx, key, w.policy.Limit, w.policy.Window)
}

func (w *SlidingWindow) CheckAdjusted(ctx context.Context, key string, limit int64, window time.Duration) Decision {
	tags := map[string]string{"namespace": w.namespace}
	w.recorder.Add("admission.check", 1, tags)

	start := time.Now()
	count, oldest, allowed, err := w.store.TakeSliding(ctx, w.namespace+":"+key, limit, window, uuid.NewString())
	w.recorder.Observe("admission.latency", time.Since(start).Seconds(), tags)
	if err != nil {
		w.recorder.Add("admission.fail_open", 1, tags)
		w.logger.Warn("admission store unavailable, failing open",
			zap.String("namespace", w.namespace),
			zap.String("key", key),
			zap.Error(err))
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   time.Now().Add(window),
		}
	}

	resetAt := time.Now().Add(window)
	if !oldest.IsZero() {
		resetAt = oldest.Add(window)
	}

	if !allowed {
		w.recorder.Add("admission.denied", 1, tags)
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: time.Until(resetAt),
		}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
