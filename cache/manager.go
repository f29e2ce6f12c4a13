package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
)

var (
	customStoreCreators   = make(map[string]types.StoreCreator)
	customStoreCreatorsMu sync.RWMutex
)

func RegisterStore(storeType string, creator types.StoreCreator) {
	customStoreCreatorsMu.Lock()
	customStoreCreators[storeType] = creator
	customStoreCreatorsMu.Unlock()
}

type OpenerOption func(*openerSettings)

type openerSettings struct {
	cacheRoot string
}

// WithCacheRoot sets the directory on-disk stores default to.
func WithCacheRoot(dir string) OpenerOption {
	return func(s *openerSettings) {
		s.cacheRoot = dir
	}
}

// NewStoreOpener validates the store config once and returns an opener that
// creates one store per namespace. Memory and clover stores opened by the same
// opener share a backend. A nil metrics manager disables instrumentation.
func NewStoreOpener(config *types.StoreConfig, logger types.Logger, metrics types.MetricsManager, opts ...OpenerOption) (types.StoreOpener, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	settings := &openerSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	var opener types.StoreOpener

	switch config.Type {
	case "redis":
		redisConfig, err := ParseRedisConfig(config.Config)
		if err != nil {
			return nil, err
		}
		opener = func(ctx context.Context, namespace string) (types.CacheStore, error) {
			return NewRedisStore(ctx, logger, namespace, redisConfig)
		}
	case "memory":
		backend := NewMemoryBackend()
		opener = func(_ context.Context, namespace string) (types.CacheStore, error) {
			return NewMemoryStore(backend, logger, namespace)
		}
	case "clover":
		cloverConfig, err := ParseCloverConfig(config.Config, settings.cacheRoot)
		if err != nil {
			return nil, err
		}
		backend := NewCloverBackend(logger, cloverConfig)
		opener = func(_ context.Context, namespace string) (types.CacheStore, error) {
			return NewCloverStore(backend, logger, namespace)
		}
	default:
		customStoreCreatorsMu.RLock()
		creator, exists := customStoreCreators[config.Type]
		customStoreCreatorsMu.RUnlock()
		if !exists {
			return nil, types.Errorf(types.ErrCacheTypeUnknown, "type: %s", config.Type)
		}
		opener = func(ctx context.Context, namespace string) (types.CacheStore, error) {
			return creator(ctx, namespace, config.Config)
		}
	}

	logger.Info("Cache store configured", zap.String("type", config.Type))

	if metrics == nil {
		return opener, nil
	}

	return func(ctx context.Context, namespace string) (types.CacheStore, error) {
		store, err := opener(ctx, namespace)
		if err != nil {
			return nil, err
		}
		return newInstrumentedStore(metrics, store), nil
	}, nil
}

type instrumentedStore struct {
	impl    types.CacheStore
	metrics types.MetricsManager
}

func newInstrumentedStore(metrics types.MetricsManager, impl types.CacheStore) types.CacheStore {
	return &instrumentedStore{
		impl:    impl,
		metrics: metrics,
	}
}

func (s *instrumentedStore) Namespace() string {
	return s.impl.Namespace()
}

func (s *instrumentedStore) Get(ctx context.Context, key, version string) (json.RawMessage, bool, error) {
	start := time.Now()
	value, found, err := s.impl.Get(ctx, key, version)
	duration := time.Since(start)

	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case found:
		result = "hit"
	}

	s.recordMetric("get", result, duration)
	return value, found, err
}

func (s *instrumentedStore) Set(ctx context.Context, key, version string, value interface{}) error {
	start := time.Now()
	err := s.impl.Set(ctx, key, version, value)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
	}

	s.recordMetric("set", result, duration)
	return err
}

func (s *instrumentedStore) Close() error {
	start := time.Now()
	err := s.impl.Close()
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
	}

	s.recordMetric("close", result, duration)
	return err
}

func (s *instrumentedStore) recordMetric(operation, result string, duration time.Duration) {
	opCounter := s.metrics.Counter("cache_operations_total", map[string]string{
		"namespace": s.impl.Namespace(),
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := s.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}
