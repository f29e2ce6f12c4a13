package types

// MetricsManager hands out label-bound instruments. Asking twice for the same
// name and label set returns the same series.
type MetricsManager interface {
	Counter(name string, labels map[string]string) Counter
	Histogram(name string, buckets []float64, labels map[string]string) Histogram
}

type Counter interface {
	Inc()
}

type Histogram interface {
	Observe(value float64)
}
