// Package hookcache puts a persistent cache in front of build plugin hooks.
//
// A Cache is assembled once from a types.Config: logger, optional metrics, a
// store opener and the pipeline adapter. Each call to Wrap fingerprints the
// dependency files and returns a build configuration in which the eligible
// plugins answer resolveId, load and transform from the store when they can.
//
//	c, err := hookcache.NewFromFile("hookcache.yml")
//	if err != nil {
//		return err
//	}
//	cfg, err = c.Wrap(ctx, cfg)
package hookcache

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/cache"
	"github.com/saiset-co/sai-hookcache/config"
	"github.com/saiset-co/sai-hookcache/logger"
	"github.com/saiset-co/sai-hookcache/metrics"
	"github.com/saiset-co/sai-hookcache/pipeline"
	"github.com/saiset-co/sai-hookcache/types"
)

type Cache struct {
	config  *types.Config
	logger  types.Logger
	metrics types.MetricsManager
	adapter *pipeline.Adapter
	options pipeline.Options
}

type Option func(*settings)

type settings struct {
	fs     afero.Fs
	logger types.Logger
}

// WithFs reads dependency files from fs instead of the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(s *settings) {
		s.fs = fs
	}
}

// WithLogger replaces the logger built from the logger section.
func WithLogger(l types.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

func NewFromFile(configPath string, opts ...Option) (*Cache, error) {
	cfg, err := config.NewLoader().LoadFromFile(configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to load config")
	}
	return New(cfg, opts...)
}

func New(cfg *types.Config, opts ...Option) (*Cache, error) {
	if err := config.NewLoader().Validate(cfg); err != nil {
		return nil, err
	}

	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	c := &Cache{config: cfg}

	if s.logger != nil {
		c.logger = s.logger
	} else {
		l, err := logger.NewLogger(cfg.Logger)
		if err != nil {
			return nil, types.WrapError(err, "failed to register logger")
		}
		c.logger = l
	}

	m, err := metrics.NewManager(cfg.Metrics, c.logger)
	switch {
	case err == nil:
		c.metrics = m
	case types.IsError(err, types.ErrMetricsIsDisabled):
	default:
		return nil, types.WrapError(err, "failed to register metrics manager")
	}

	opener, err := cache.NewStoreOpener(cfg.Store, c.logger, c.metrics, cache.WithCacheRoot(cfg.Cache.CacheRoot))
	if err != nil {
		return nil, types.WrapError(err, "failed to register cache store")
	}

	adapterOpts := []pipeline.AdapterOption{pipeline.WithLogger(c.logger)}
	if c.metrics != nil {
		adapterOpts = append(adapterOpts, pipeline.WithMetrics(c.metrics))
	}
	if s.fs != nil {
		adapterOpts = append(adapterOpts, pipeline.WithFs(s.fs))
	}

	c.adapter, err = pipeline.NewAdapter(opener, adapterOpts...)
	if err != nil {
		return nil, types.WrapError(err, "failed to register pipeline adapter")
	}

	c.options = optionsFromConfig(cfg.Cache)

	c.logger.Info("Hook cache initialized",
		zap.String("name", cfg.Name),
		zap.String("store", cfg.Store.Type),
		zap.Bool("metrics", c.metrics != nil))

	return c, nil
}

// Wrap replaces the eligible plugins of build with cached ones.
func (c *Cache) Wrap(ctx context.Context, build *pipeline.BuildConfig) (*pipeline.BuildConfig, error) {
	return c.adapter.Wrap(ctx, build, c.options)
}

func (c *Cache) Logger() types.Logger {
	return c.logger
}

// Metrics returns nil when metrics are disabled.
func (c *Cache) Metrics() types.MetricsManager {
	return c.metrics
}

func optionsFromConfig(cfg *types.CacheConfig) pipeline.Options {
	options := pipeline.Options{
		CacheRoot:           cfg.CacheRoot,
		Dependencies:        cfg.Dependencies,
		DefaultDependencies: cfg.DefaultDependencies,
		OutDir:              cfg.OutDir,
		DedupeInFlight:      cfg.DedupeInFlight,
	}

	if cfg.Plugins != nil {
		options.Eligible = pipeline.Eligibility(cfg.Plugins)
	}

	return options
}
