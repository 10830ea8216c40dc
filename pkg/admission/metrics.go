package admission

// MetricsRecorder is the strategy for emitting admission metrics. The package
// records:
//
//	admission.check               counter, every evaluation
//	admission.denied              counter, denials
//	admission.fail_open           counter, store failures that admitted traffic
//	admission.denylist_throttled  counter, deny-list re-weighted checks
//	admission.latency             histogram, store round-trip seconds
//
// Tags always include "namespace" so per-policy series stay separable.
type MetricsRecorder interface {
	Add(name string, value float64, tags map[string]string)
	Observe(name string, value float64, tags map[string]string)
}

// NoOpMetricsRecorder is a placeholder that does nothing.
// It ensures we never have to check 'if recorder != nil' in the hot path.
type NoOpMetricsRecorder struct{}

func (n *NoOpMetricsRecorder) Add(name string, value float64, tags map[string]string)     {}
func (n *NoOpMetricsRecorder) Observe(name string, value float64, tags map[string]string) {}
