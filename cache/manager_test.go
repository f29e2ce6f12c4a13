package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-hookcache/logger"
	"github.com/saiset-co/sai-hookcache/metrics"
	"github.com/saiset-co/sai-hookcache/types"
)

func TestNewStoreOpenerMemory(t *testing.T) {
	ctx := context.Background()

	open, err := NewStoreOpener(&types.StoreConfig{Type: "memory"}, logger.NewNop(), nil)
	require.NoError(t, err)

	first, err := open(ctx, "babel")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "v", 42))
	require.NoError(t, first.Close())

	second, err := open(ctx, "babel")
	require.NoError(t, err)
	raw, found, err := second.Get(ctx, "k", "v")
	require.NoError(t, err)
	assert.True(t, found, "stores from one opener share a backend")
	assert.Equal(t, "42", string(raw))
}

func TestNewStoreOpenerRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	open, err := NewStoreOpener(&types.StoreConfig{
		Type: "redis",
		Config: map[string]interface{}{
			"host":       mr.Host(),
			"port":       mustAtoi(t, mr.Port()),
			"key_prefix": "builds",
		},
	}, logger.NewNop(), nil)
	require.NoError(t, err)

	store, err := open(ctx, "commonjs")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "load:a.js", "v", "x"))
	assert.True(t, mr.Exists("builds:commonjs:load:a.js"))
}

func TestNewStoreOpenerErrors(t *testing.T) {
	_, err := NewStoreOpener(nil, logger.NewNop(), nil)
	assert.ErrorIs(t, err, types.ErrConfigIsNil)

	_, err = NewStoreOpener(&types.StoreConfig{Type: "etcd"}, logger.NewNop(), nil)
	assert.ErrorIs(t, err, types.ErrCacheTypeUnknown)

	_, err = NewStoreOpener(&types.StoreConfig{
		Type:   "redis",
		Config: map[string]interface{}{"dial_timeout": "forever"},
	}, logger.NewNop(), nil)
	assert.ErrorIs(t, err, types.ErrConfigValidateFailed)
}

func TestRegisterStore(t *testing.T) {
	ctx := context.Background()
	mockStore := &MockStore{}
	mockStore.On("Namespace").Return("babel")

	var gotConfig interface{}
	RegisterStore("mock", func(_ context.Context, namespace string, config interface{}) (types.CacheStore, error) {
		gotConfig = config
		return mockStore, nil
	})

	open, err := NewStoreOpener(&types.StoreConfig{Type: "mock", Config: "dsn"}, logger.NewNop(), nil)
	require.NoError(t, err)

	store, err := open(ctx, "babel")
	require.NoError(t, err)
	assert.Same(t, mockStore, store)
	assert.Equal(t, "dsn", gotConfig)
}

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMemoryMetrics(logger.NewNop())

	open, err := NewStoreOpener(&types.StoreConfig{Type: "memory"}, logger.NewNop(), m)
	require.NoError(t, err)

	store, err := open(ctx, "babel")
	require.NoError(t, err)
	assert.Equal(t, "babel", store.Namespace())

	_, _, err = store.Get(ctx, "k", "v")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", "v", 1))
	_, _, err = store.Get(ctx, "k", "v")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Error(t, store.Close())

	ops := func(operation, result string) float64 {
		return m.CounterValue("cache_operations_total", map[string]string{
			"namespace": "babel",
			"operation": operation,
			"result":    result,
		})
	}

	assert.Equal(t, float64(1), ops("get", "miss"))
	assert.Equal(t, float64(1), ops("get", "hit"))
	assert.Equal(t, float64(1), ops("set", "success"))
	assert.Equal(t, float64(1), ops("close", "success"))
	assert.Equal(t, float64(1), ops("close", "error"))

	assert.Equal(t, uint64(2), m.HistogramCount("cache_operation_duration_seconds", map[string]string{"operation": "get"}))
}

func TestInstrumentedStoreGetError(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMemoryMetrics(logger.NewNop())

	inner := &MockStore{}
	inner.On("Namespace").Return("babel")
	inner.On("Get", ctx, "k", "v").Return(nil, false, errors.New("timeout"))

	store := newInstrumentedStore(m, inner)
	_, _, err := store.Get(ctx, "k", "v")
	require.Error(t, err)

	assert.Equal(t, float64(1), m.CounterValue("cache_operations_total", map[string]string{
		"namespace": "babel",
		"operation": "get",
		"result":    "error",
	}))
	inner.AssertCalled(t, "Get", ctx, "k", mock.Anything)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
