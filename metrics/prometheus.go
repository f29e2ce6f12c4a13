package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
	"github.com/saiset-co/sai-hookcache/utils"
)

type PrometheusConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// PrometheusMetrics registers one vector per metric name in a private
// registry. The host serves or pushes it through Registry.
type PrometheusMetrics struct {
	logger      types.Logger
	config      *PrometheusConfig
	constLabels prometheus.Labels
	registry    *prometheus.Registry
	counters    map[string]*prometheus.CounterVec
	histograms  map[string]*prometheus.HistogramVec
	mu          sync.Mutex
}

func NewPrometheusMetrics(logger types.Logger, config *types.MetricsConfig) (*PrometheusMetrics, error) {
	promConfig := &PrometheusConfig{Namespace: "hookcache"}
	constLabels := prometheus.Labels{}

	if config != nil {
		if config.Config != nil {
			if err := utils.UnmarshalConfig(config.Config, promConfig); err != nil {
				return nil, types.WrapError(err, "failed to unmarshal prometheus config")
			}
		}
		for k, v := range config.Labels {
			constLabels[k] = v
		}
	}

	logger.Info("Prometheus metrics initialized",
		zap.String("namespace", promConfig.Namespace),
		zap.String("subsystem", promConfig.Subsystem))

	return &PrometheusMetrics{
		logger:      logger,
		config:      promConfig,
		constLabels: constLabels,
		registry:    prometheus.NewRegistry(),
		counters:    make(map[string]*prometheus.CounterVec),
		histograms:  make(map[string]*prometheus.HistogramVec),
	}, nil
}

func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// Counter returns the series of name bound to labels. The first call for a
// name fixes its label names.
func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, exists := p.counters[name]
	if !exists {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        "Counter metric " + name,
			ConstLabels: p.constLabels,
		}, labelNames(labels))

		p.registry.MustRegister(vec)
		p.counters[name] = vec
		p.logger.Debug("Prometheus counter created", zap.String("name", name))
	}

	return vec.With(labels)
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, exists := p.histograms[name]
	if !exists {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        "Histogram metric " + name,
			Buckets:     buckets,
			ConstLabels: p.constLabels,
		}, labelNames(labels))

		p.registry.MustRegister(vec)
		p.histograms[name] = vec
		p.logger.Debug("Prometheus histogram created", zap.String("name", name))
	}

	return vec.With(labels)
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
