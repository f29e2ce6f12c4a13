// Package pipeline rewrites a build configuration so that eligible plugins run
// behind a cache.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/interceptor"
	"github.com/saiset-co/sai-hookcache/logger"
	"github.com/saiset-co/sai-hookcache/types"
	"github.com/saiset-co/sai-hookcache/version"
)

// DefaultDependencies are the manifest and lock files folded into every
// fingerprint when they exist.
var DefaultDependencies = []string{"package.json", "package-lock.json", "yarn.lock"}

// Eligibility maps the plugin names that may be cached to their cache config.
// Plugins missing from the table are never cached.
type Eligibility map[string]types.PluginCacheConfig

func DefaultEligibility() Eligibility {
	return Eligibility{
		"babel":        {},
		"commonjs":     {},
		"node-resolve": {},
	}
}

// BuildConfig is the part of a host build configuration the adapter touches.
// Extra carries every other field through unchanged.
type BuildConfig struct {
	Input   []string
	Plugins []*types.Plugin
	Extra   map[string]interface{}
}

type Options struct {
	// CacheRoot is where on-disk stores keep their files. The adapter only
	// logs it; the store opener is configured with it.
	CacheRoot string
	// Dependencies are extra files hashed after the defaults. They must exist.
	Dependencies []string
	// DefaultDependencies replaces DefaultDependencies when non-nil. Missing
	// files in this list are skipped.
	DefaultDependencies []string
	OutDir              string
	// Eligible replaces DefaultEligibility when non-nil.
	Eligible       Eligibility
	DedupeInFlight bool
}

type AdapterOption func(*Adapter)

func WithLogger(l types.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = l
	}
}

func WithMetrics(m types.MetricsManager) AdapterOption {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithFs sets the file system dependency files are read from.
func WithFs(fs afero.Fs) AdapterOption {
	return func(a *Adapter) {
		a.hasher = version.NewHasher(fs)
	}
}

type Adapter struct {
	opener  types.StoreOpener
	logger  types.Logger
	metrics types.MetricsManager
	hasher  *version.Hasher
}

func NewAdapter(opener types.StoreOpener, opts ...AdapterOption) (*Adapter, error) {
	if opener == nil {
		return nil, types.ErrStoreOpenerIsNil
	}

	a := &Adapter{
		opener: opener,
		logger: logger.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.hasher == nil {
		a.hasher = version.NewHasher(nil)
	}

	return a, nil
}

// Wrap returns a copy of cfg in which every eligible plugin is replaced by its
// cached counterpart. All wrapped plugins share one dependency fingerprint,
// extended per plugin by its ExtraDependencies. Nothing is wrapped when an
// error is returned; stores opened before the failure are closed.
func (a *Adapter) Wrap(ctx context.Context, cfg *BuildConfig, options Options) (*BuildConfig, error) {
	if cfg == nil {
		return nil, types.ErrBuildConfigIsNil
	}

	defaults := options.DefaultDependencies
	if defaults == nil {
		defaults = DefaultDependencies
	}

	files := append(a.hasher.Existing(defaults), options.Dependencies...)

	versionHash, err := a.hasher.Fingerprint(files)
	if err != nil {
		return nil, err
	}

	eligible := options.Eligible
	if eligible == nil {
		eligible = DefaultEligibility()
	}

	buildID := uuid.New().String()

	interceptorOpts := []interceptor.Option{
		interceptor.WithLogger(a.logger),
		interceptor.WithBuildID(buildID),
		interceptor.WithKeyTrim(options.OutDir),
	}
	if a.metrics != nil {
		interceptorOpts = append(interceptorOpts, interceptor.WithMetrics(a.metrics))
	}
	if options.DedupeInFlight {
		interceptorOpts = append(interceptorOpts, interceptor.WithSingleflight())
	}

	plugins := make([]*types.Plugin, len(cfg.Plugins))
	var opened []types.CacheStore

	for idx, plugin := range cfg.Plugins {
		if plugin == nil {
			continue
		}

		pluginConfig, ok := eligible[plugin.Name]
		if !ok {
			plugins[idx] = plugin
			continue
		}

		wrapped, store, err := a.wrapPlugin(ctx, plugin, pluginConfig, files, versionHash, interceptorOpts)
		if store != nil {
			opened = append(opened, store)
		}
		if err != nil {
			return nil, multierr.Append(err, closeStores(opened))
		}

		plugins[idx] = wrapped
	}

	a.logger.Info("Build configuration wrapped",
		zap.String("build_id", buildID),
		zap.Int("plugins", len(cfg.Plugins)),
		zap.Int("cached", len(opened)),
		zap.String("version", versionHash),
		zap.String("cache_root", options.CacheRoot),
		zap.Strings("dependencies", files))

	return &BuildConfig{
		Input:   cfg.Input,
		Plugins: plugins,
		Extra:   cfg.Extra,
	}, nil
}

func (a *Adapter) wrapPlugin(ctx context.Context, plugin *types.Plugin, pluginConfig types.PluginCacheConfig, files []string, versionHash string, opts []interceptor.Option) (*types.Plugin, types.CacheStore, error) {
	if len(pluginConfig.ExtraDependencies) > 0 {
		pluginFiles := make([]string, 0, len(files)+len(pluginConfig.ExtraDependencies))
		pluginFiles = append(pluginFiles, files...)
		pluginFiles = append(pluginFiles, pluginConfig.ExtraDependencies...)

		var err error
		versionHash, err = a.hasher.Fingerprint(pluginFiles)
		if err != nil {
			return nil, nil, types.WrapError(err, "plugin "+plugin.Name)
		}
	}

	store, err := a.opener(ctx, plugin.Name)
	if err != nil {
		return nil, nil, types.WrapError(err, "failed to open cache store for plugin "+plugin.Name)
	}

	wrapped, err := interceptor.Wrap(plugin, store, versionHash, opts...)
	if err != nil {
		return nil, store, err
	}

	a.logger.Debug("Plugin cached",
		zap.String("plugin", plugin.Name),
		zap.String("namespace", store.Namespace()),
		zap.Stringer("hooks", plugin.Hooks()),
		zap.String("version", versionHash))

	return wrapped, store, nil
}

func closeStores(stores []types.CacheStore) error {
	var err error
	for _, store := range stores {
		err = multierr.Append(err, store.Close())
	}
	return err
}
