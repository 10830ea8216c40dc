package admission

import "context"

// Composite chains a short burst allowance with a longer sustained allowance.
// The burst limiter is consulted first and its denial is returned
// immediately; otherwise the sustained decision is returned as-is. The two
// limiters must carry distinct namespaces so their state stays independent:
// exhausting one never corrupts the other.
//
// Note that an admitted request is counted by both limiters, while a request
// the burst limiter rejects never reaches the sustained one.
type Composite struct {
	burst     Limiter
	sustained Limiter
}

var _ Limiter = (*Composite)(nil)

// NewComposite combines a burst and a sustained limiter.
func NewComposite(burst, sustained Limiter) (*Composite, error) {
	if burst == nil || sustained == nil {
		return nil, ErrNilLimiter
	}
	return &Composite{burst: burst, sustained: sustained}, nil
}

func (c *Composite) Check(ctx context.Context, key string) Decision {
	dec := c.burst.Check(ctx, key)
	if !dec.Allowed {
		return dec
	}
	return c.sustained.Check(ctx, key)
}

// Uncount forwards the compensating decrement to both limiters, since an
// admitted request was counted by both.
func (c *Composite) Uncount(ctx context.Context, key string) {
	if u, ok := c.burst.(Uncounter); ok {
		u.Uncount(ctx, key)
	}
	if u, ok := c.sustained.(Uncounter); ok {
		u.Uncount(ctx, key)
	}
}
