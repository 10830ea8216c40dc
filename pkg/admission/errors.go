package admission

import "errors"

var (
	// ErrInvalidPolicy is returned at construction time for a zero or
	// negative limit or window. Misconfiguration is rejected up front, never
	// per request.
	ErrInvalidPolicy = errors.New("admission: policy limit and window must be positive")

	// ErrNilStore is returned when a limiter is constructed without a
	// counter store.
	ErrNilStore = errors.New("admission: counter store is required")

	// ErrNilLimiter is returned when a wrapping layer is constructed without
	// a base limiter.
	ErrNilLimiter = errors.New("admission: base limiter is required")

	// ErrNilKeyStrategy is returned when an engine is constructed without a
	// key strategy.
	ErrNilKeyStrategy = errors.New("admission: key strategy is required")
)
