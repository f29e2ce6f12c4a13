package metrics

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/saiset-co/sai-hookcache/types"
)

// MemoryMetrics keeps counters and histograms in process. Reads go through
// CounterValue and the histogram accessors, which never create a series.
type MemoryMetrics struct {
	logger     types.Logger
	counters   map[string]*memoryCounter
	histograms map[string]*memoryHistogram
	mu         sync.RWMutex
}

func NewMemoryMetrics(logger types.Logger) *MemoryMetrics {
	return &MemoryMetrics{
		logger:     logger,
		counters:   make(map[string]*memoryCounter),
		histograms: make(map[string]*memoryHistogram),
	}
}

func (m *MemoryMetrics) Counter(name string, labels map[string]string) types.Counter {
	key := seriesKey(name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	counter, exists := m.counters[key]
	if !exists {
		counter = &memoryCounter{}
		m.counters[key] = counter
	}
	return counter
}

// Histogram keeps count and sum only; buckets are ignored.
func (m *MemoryMetrics) Histogram(name string, _ []float64, labels map[string]string) types.Histogram {
	key := seriesKey(name, labels)

	m.mu.Lock()
	defer m.mu.Unlock()

	histogram, exists := m.histograms[key]
	if !exists {
		histogram = &memoryHistogram{}
		m.histograms[key] = histogram
	}
	return histogram
}

// CounterValue returns the value of the series, or 0 when it was never created.
func (m *MemoryMetrics) CounterValue(name string, labels map[string]string) float64 {
	m.mu.RLock()
	counter, exists := m.counters[seriesKey(name, labels)]
	m.mu.RUnlock()

	if !exists {
		return 0
	}
	return float64(atomic.LoadUint64(&counter.value))
}

// HistogramCount returns the number of observations of the series.
func (m *MemoryMetrics) HistogramCount(name string, labels map[string]string) uint64 {
	m.mu.RLock()
	histogram, exists := m.histograms[seriesKey(name, labels)]
	m.mu.RUnlock()

	if !exists {
		return 0
	}
	return atomic.LoadUint64(&histogram.count)
}

// HistogramSum returns the sum of the observations of the series.
func (m *MemoryMetrics) HistogramSum(name string, labels map[string]string) float64 {
	m.mu.RLock()
	histogram, exists := m.histograms[seriesKey(name, labels)]
	m.mu.RUnlock()

	if !exists {
		return 0
	}
	return math.Float64frombits(atomic.LoadUint64(&histogram.sumBits))
}

// seriesKey renders name and labels with label names sorted, so equal label
// sets always map to the same series.
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range names {
		b.WriteByte('{')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte('}')
	}
	return b.String()
}

type memoryCounter struct {
	value uint64
}

func (c *memoryCounter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

type memoryHistogram struct {
	sumBits uint64
	count   uint64
}

func (h *memoryHistogram) Observe(value float64) {
	atomic.AddUint64(&h.count, 1)

	for {
		old := atomic.LoadUint64(&h.sumBits)
		sum := math.Float64bits(math.Float64frombits(old) + value)
		if atomic.CompareAndSwapUint64(&h.sumBits, old, sum) {
			break
		}
	}
}
