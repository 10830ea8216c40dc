package admission

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Engine is the per-request admission pipeline: key strategy, then overrides,
// then the limiter. It holds no mutable state of its own and is safe to call
// from arbitrarily many request-handling goroutines; all coordination lives
// in the limiter's counter store.
type Engine struct {
	keys      KeyStrategy
	limiter   Limiter
	overrides *Overrides
	logger    *zap.Logger
	recorder  MetricsRecorder
}

// policied lets the engine scale a limiter's own policy for deny-listed
// identities without knowing which algorithm is behind it.
type policied interface {
	AdjustableLimiter
	Policy() Policy
}

// NewEngine wires a key strategy and a limiter into an admission pipeline.
// Accepted options: WithOverrides, WithLogger, WithRecorder.
func NewEngine(keys KeyStrategy, limiter Limiter, opts ...Option) (*Engine, error) {
	if keys == nil {
		return nil, ErrNilKeyStrategy
	}
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	s := applyOptions(opts)
	return &Engine{
		keys:      keys,
		limiter:   limiter,
		overrides: s.overrides,
		logger:    s.logger,
		recorder:  s.recorder,
	}, nil
}

// Resolve reports the override verdict for id without touching the store.
func (e *Engine) Resolve(id Identity) Access {
	return e.overrides.Resolve(id.Addr(), id.CallerID)
}

// Admit runs one admission check for id.
//
// Allow-listed identities bypass the limiter entirely. Deny-listed ones still
// flow through it, but with the limit scaled by the deny-list multiplier, and
// the throttling is reported on a dedicated metric so it stays
// distinguishable from ordinary throttling.
func (e *Engine) Admit(ctx context.Context, id Identity) Decision {
	switch e.Resolve(id) {
	case AccessAllow:
		dec := Decision{Allowed: true, ResetAt: time.Now()}
		if pl, ok := e.limiter.(policied); ok {
			p := pl.Policy()
			dec.Limit = p.Limit
			dec.Remaining = p.Limit
		}
		return dec

	case AccessDeny:
		key := e.keys(id)
		e.recorder.Add("admission.denylist_throttled", 1, nil)
		pl, ok := e.limiter.(policied)
		if !ok {
			// Composite and other opaque limiters cannot be re-weighted;
			// apply them unmodified and keep the signal.
			e.logger.Debug("deny-listed identity on non-adjustable limiter",
				zap.String("key", key))
			return e.limiter.Check(ctx, key)
		}
		p := pl.Policy()
		scaled := int64(math.Floor(float64(p.Limit) * e.overrides.DenyMultiplier))
		if scaled < 1 {
			scaled = 1
		}
		return pl.CheckAdjusted(ctx, key, scaled, p.Window)

	default:
		return e.limiter.Check(ctx, e.keys(id))
	}
}

// Uncount applies the compensating decrement for id, when the limiter
// supports one. Allow-listed identities were never counted, so nothing is
// undone for them.
func (e *Engine) Uncount(ctx context.Context, id Identity) {
	if e.Resolve(id) == AccessAllow {
		return
	}
	if u, ok := e.limiter.(Uncounter); ok {
		u.Uncount(ctx, e.keys(id))
	}
}
