package admission

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Progressive wraps a base limiter and tightens it for repeat offenders.
// Every denial increments a per-key violation counter that outlives any
// single window; the counter drives a strictness multiplier
//
//	multiplier = min(1 + 0.5*violations, maxMultiplier)
//
// which divides the limit and stretches the window before delegating. The
// counter decays only by its own expiry lapsing with no further violations.
//
// Give Progressive a namespace distinct from the base limiter's so the
// violation counters never share keys with window counters.
type Progressive struct {
	base         AdjustableLimiter
	store        CounterStore
	namespace    string
	policy       Policy
	violationTTL time.Duration
	maxMult      float64
	minLimit     int64
	logger       *zap.Logger
	recorder     MetricsRecorder
}

var _ AdjustableLimiter = (*Progressive)(nil)

// NewProgressive constructs the penalty layer around base. Accepted options:
// WithViolationTTL, WithMaxMultiplier, WithMinLimit, WithLogger, WithRecorder.
func NewProgressive(base AdjustableLimiter, store CounterStore, namespace string, policy Policy, opts ...Option) (*Progressive, error) {
	if base == nil {
		return nil, ErrNilLimiter
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	s := applyOptions(opts)
	return &Progressive{
		base:         base,
		store:        store,
		namespace:    namespace,
		policy:       policy,
		violationTTL: s.violationTTL,
		maxMult:      s.maxMultiplier,
		minLimit:     s.minLimit,
		logger:       s.logger,
		recorder:     s.recorder,
	}, nil
}

// Policy returns the configured base (limit, window) pair.
func (p *Progressive) Policy() Policy { return p.policy }

func (p *Progressive) Check(ctx context.Context, key string) Decision {
	return p.CheckAdjusted(ctx, key, p.policy.Limit, p.policy.Window)
}

func (p *Progressive) CheckAdjusted(ctx context.Context, key string, limit int64, window time.Duration) Decision {
	violations, err := p.store.Violations(ctx, p.namespace+":"+key)
	if err != nil {
		// Fail open on the penalty read: the base limiter still applies.
		p.logger.Warn("violation counter unavailable, applying base policy",
			zap.String("namespace", p.namespace),
			zap.String("key", key),
			zap.Error(err))
		violations = 0
	}

	multiplier := 1 + float64(violations)*0.5
	if multiplier > p.maxMult {
		multiplier = p.maxMult
	}

	adjLimit := int64(math.Floor(float64(limit) / multiplier))
	if adjLimit < p.minLimit {
		adjLimit = p.minLimit
	}
	adjWindow := time.Duration(float64(window) * multiplier)

	dec := p.base.CheckAdjusted(ctx, key, adjLimit, adjWindow)
	if !dec.Allowed {
		if _, err := p.store.RecordViolation(ctx, p.namespace+":"+key, p.violationTTL); err != nil {
			p.logger.Warn("violation record failed",
				zap.String("namespace", p.namespace),
				zap.String("key", key),
				zap.Error(err))
		}
	}
	return dec
}

// Uncount forwards the compensating decrement to the base limiter when it
// supports one.
func (p *Progressive) Uncount(ctx context.Context, key string) {
	if u, ok := p.base.(Uncounter); ok {
		u.Uncount(ctx, key)
	}
}
