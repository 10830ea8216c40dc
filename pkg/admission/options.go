package admission

import (
	"time"

	"go.uber.org/zap"
)

// settings collects the knobs shared by the limiter constructors. Each
// constructor reads only the fields that apply to it.
type settings struct {
	logger        *zap.Logger
	recorder      MetricsRecorder
	overrides     *Overrides
	violationTTL  time.Duration
	maxMultiplier float64
	minLimit      int64
}

// Option configures a limiter, layer or engine at construction time.
type Option func(*settings)

func defaultSettings() settings {
	return settings{
		logger:        zap.NewNop(),
		recorder:      &NoOpMetricsRecorder{},
		violationTTL:  24 * time.Hour,
		maxMultiplier: 4.0,
		minLimit:      1,
	}
}

// WithLogger injects the logger used for fail-open and compensating-action
// reporting. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder injects a custom metrics backend.
func WithRecorder(r MetricsRecorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithOverrides attaches allow/deny lists to an Engine.
func WithOverrides(o *Overrides) Option {
	return func(s *settings) { s.overrides = o }
}

// WithViolationTTL sets how long a violation counter survives without further
// violations (default 24h). Applies to Progressive.
func WithViolationTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.violationTTL = d
		}
	}
}

// WithMaxMultiplier caps the progressive strictness multiplier (default 4.0).
// Applies to Progressive.
func WithMaxMultiplier(m float64) Option {
	return func(s *settings) {
		if m >= 1 {
			s.maxMultiplier = m
		}
	}
}

// WithMinLimit clamps the adjusted limit so a small base limit under heavy
// violations never becomes permanently unsatisfiable (default 1). Applies to
// Progressive.
func WithMinLimit(n int64) Option {
	return func(s *settings) {
		if n >= 1 {
			s.minLimit = n
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
