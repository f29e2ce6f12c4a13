// Package interceptor turns a build plugin into a caching plugin.
//
// The wrapped plugin exposes the same hooks as its delegate. resolveId, load
// and transform consult a CacheStore before running the delegate and write the
// delegate's result back on a miss. buildEnd always exists on the wrapper
// because it owns the store's teardown.
package interceptor

import (
	"context"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-hookcache/logger"
	"github.com/saiset-co/sai-hookcache/types"
	"github.com/saiset-co/sai-hookcache/utils"
	"github.com/saiset-co/sai-hookcache/version"
)

type State int32

const (
	StateIdle State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Option func(*options)

type options struct {
	logger       types.Logger
	metrics      types.MetricsManager
	outDir       string
	buildID      string
	singleflight bool
}

func WithLogger(l types.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records hook_cache_requests_total per plugin, hook and result.
func WithMetrics(m types.MetricsManager) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithKeyTrim strips everything up to the last occurrence of outDir from
// module ids before they become cache keys.
func WithKeyTrim(outDir string) Option {
	return func(o *options) {
		o.outDir = outDir
	}
}

// WithBuildID tags every log line of the interceptor with the build it serves.
func WithBuildID(id string) Option {
	return func(o *options) {
		o.buildID = id
	}
}

// WithSingleflight collapses concurrent misses on the same key and version
// into a single delegate call. Waiting callers share the first caller's result,
// and the store lookup and delegate run with the first caller's context: when
// that context is cancelled, every waiter gets the cancellation error.
func WithSingleflight() Option {
	return func(o *options) {
		o.singleflight = true
	}
}

// Interceptor owns one delegate plugin and the store bound to its namespace.
type Interceptor struct {
	delegate    *types.Plugin
	store       types.CacheStore
	versionHash string
	opts        options
	state       atomic.Int32
	flights     singleflight.Group
}

func New(delegate *types.Plugin, store types.CacheStore, versionHash string, opts ...Option) (*Interceptor, error) {
	if delegate == nil {
		return nil, types.ErrPluginIsNil
	}
	if delegate.Name == "" {
		return nil, types.ErrPluginNameEmpty
	}
	if store == nil {
		return nil, types.Errorf(types.ErrInvalidParameter, "store is nil for plugin %s", delegate.Name)
	}
	if versionHash == "" {
		return nil, types.ErrVersionHashEmpty
	}

	o := options{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	i := &Interceptor{
		delegate:    delegate,
		store:       store,
		versionHash: versionHash,
		opts:        o,
	}
	i.state.Store(int32(StateIdle))

	return i, nil
}

// Wrap builds an Interceptor and returns its plugin descriptor.
func Wrap(delegate *types.Plugin, store types.CacheStore, versionHash string, opts ...Option) (*types.Plugin, error) {
	i, err := New(delegate, store, versionHash, opts...)
	if err != nil {
		return nil, err
	}
	return i.Plugin(), nil
}

func (i *Interceptor) State() State {
	return State(i.state.Load())
}

// Plugin returns the wrapped descriptor. Extra fields are copied from the
// delegate; hook fields are set only where the delegate has a hook, except
// BuildEnd which is always set.
func (i *Interceptor) Plugin() *types.Plugin {
	d := i.delegate

	wrapped := &types.Plugin{
		Name:     CachedName(d.Name),
		BuildEnd: i.buildEnd,
		Extra:    d.CloneExtra(),
	}

	if d.BuildStart != nil {
		wrapped.BuildStart = i.buildStart
	}
	if d.ResolveID != nil {
		wrapped.ResolveID = i.resolveID
	}
	if d.Load != nil {
		wrapped.Load = i.load
	}
	if d.Transform != nil {
		wrapped.Transform = i.transform
	}

	return wrapped
}

func (i *Interceptor) buildStart(ctx context.Context, hc types.HookContext, inputOptions types.InputOptions) error {
	if err := i.activate(); err != nil {
		return err
	}
	return i.delegate.BuildStart(ctx, hc, inputOptions)
}

// buildEnd closes the store before the delegate's buildEnd runs. The delegate
// is called even when closing fails; both errors are returned.
func (i *Interceptor) buildEnd(ctx context.Context, hc types.HookContext, buildErr error) error {
	closeErr := i.close()
	if closeErr != nil {
		i.opts.logger.Warn("Failed to close cache store", i.logFields("", zap.Error(closeErr))...)
	}

	var delegateErr error
	if i.delegate.BuildEnd != nil {
		delegateErr = i.delegate.BuildEnd(ctx, hc, buildErr)
	}

	return multierr.Append(delegateErr, closeErr)
}

func (i *Interceptor) resolveID(ctx context.Context, hc types.HookContext, id, importer string, resolveOptions types.ResolveOptions) (*types.ResolvedID, error) {
	key := ResolveIDKey(i.keyID(id), importer)

	return cached(ctx, i, hookResolveID, key, i.versionHash, func() (*types.ResolvedID, error) {
		return i.delegate.ResolveID(ctx, hc, id, importer, resolveOptions)
	})
}

func (i *Interceptor) load(ctx context.Context, hc types.HookContext, id string) (*types.SourceDescription, error) {
	key := LoadKey(i.keyID(id))

	return cached(ctx, i, hookLoad, key, i.versionHash, func() (*types.SourceDescription, error) {
		return i.delegate.Load(ctx, hc, id)
	})
}

func (i *Interceptor) transform(ctx context.Context, hc types.HookContext, code, id string) (*types.SourceDescription, error) {
	key := TransformKey(i.keyID(id))
	itemVersion := version.ItemVersion(i.versionHash, utils.StringToBytes(code))

	return cached(ctx, i, hookTransform, key, itemVersion, func() (*types.SourceDescription, error) {
		return i.delegate.Transform(ctx, hc, code, id)
	})
}

// cached runs the get, compute on miss, set sequence for one hook call.
func cached[T any](ctx context.Context, i *Interceptor, hook, key, ver string, compute func() (*T, error)) (*T, error) {
	if err := i.activate(); err != nil {
		return nil, err
	}

	if !i.opts.singleflight {
		return lookupOrCompute(ctx, i, hook, key, ver, compute)
	}

	v, err, _ := i.flights.Do(key+"\x00"+ver, func() (interface{}, error) {
		return lookupOrCompute(ctx, i, hook, key, ver, compute)
	})
	if err != nil {
		return nil, err
	}

	result, ok := v.(*T)
	if !ok {
		return nil, types.Errorf(types.ErrUnexpectedFlightType, "key: %s", key)
	}
	return result, nil
}

func lookupOrCompute[T any](ctx context.Context, i *Interceptor, hook, key, ver string, compute func() (*T, error)) (*T, error) {
	raw, found, err := i.store.Get(ctx, key, ver)
	if err != nil {
		i.record(hook, "error")
		i.opts.logger.Warn("Cache lookup failed", i.logFields(key, zap.Error(err))...)
		return nil, err
	}

	if found {
		value, err := utils.DecodeRaw[T](raw)
		if err != nil {
			i.record(hook, "error")
			return nil, types.Wrapf(types.ErrCacheEntryCorrupt, err, "key: %s", key)
		}

		i.record(hook, "hit")
		i.opts.logger.Debug("Cache hit", i.logFields(key, zap.String("version", ver))...)
		return value, nil
	}

	i.record(hook, "miss")

	result, err := compute()
	if err != nil {
		return nil, err
	}

	if err := i.store.Set(ctx, key, ver, result); err != nil {
		i.record(hook, "error")
		i.opts.logger.Warn("Cache write failed", i.logFields(key, zap.Error(err))...)
		return nil, err
	}

	return result, nil
}

func (i *Interceptor) logFields(key string, extra ...zap.Field) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+3)
	fields = append(fields, zap.String("plugin", i.delegate.Name))
	if i.opts.buildID != "" {
		fields = append(fields, zap.String("build_id", i.opts.buildID))
	}
	if key != "" {
		fields = append(fields, zap.String("key", key))
	}
	return append(fields, extra...)
}

func (i *Interceptor) keyID(id string) string {
	return trimOutDir(id, i.opts.outDir)
}

func (i *Interceptor) activate() error {
	if i.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) {
		return nil
	}
	if i.State() == StateClosed {
		return types.Errorf(types.ErrInterceptorClosed, "plugin: %s", i.delegate.Name)
	}
	return nil
}

func (i *Interceptor) close() error {
	if State(i.state.Swap(int32(StateClosed))) == StateClosed {
		return types.Errorf(types.ErrInterceptorClosed, "plugin: %s", i.delegate.Name)
	}
	return i.store.Close()
}

func (i *Interceptor) record(hook, result string) {
	if i.opts.metrics == nil {
		return
	}

	i.opts.metrics.Counter("hook_cache_requests_total", map[string]string{
		"plugin": i.delegate.Name,
		"hook":   hook,
		"result": result,
	}).Inc()
}
