package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-hookcache/logger"
	"github.com/saiset-co/sai-hookcache/types"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	store, err := NewMemoryStore(backend, logger.NewNop(), "babel")
	require.NoError(t, err)

	_, found, err := store.Get(ctx, "transform:a.js", "v1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "transform:a.js", "v1", map[string]string{"code": "A"}))

	raw, found, err := store.Get(ctx, "transform:a.js", "v1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"code":"A"}`, string(raw))

	_, found, err = store.Get(ctx, "transform:a.js", "v2")
	require.NoError(t, err)
	assert.False(t, found, "a different version is a miss")

	data, ok := backend.Raw("babel:transform:a.js")
	require.True(t, ok)
	assert.JSONEq(t, `{"version":"v1","value":{"code":"A"}}`, string(data))
}

func TestMemoryStoreSharedBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	first, err := NewMemoryStore(backend, logger.NewNop(), "babel")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "v", "persisted"))
	require.NoError(t, first.Close())

	// A store opened for the next build sees what the previous one wrote.
	second, err := NewMemoryStore(backend, logger.NewNop(), "babel")
	require.NoError(t, err)
	raw, found, err := second.Get(ctx, "k", "v")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `"persisted"`, string(raw))

	other, err := NewMemoryStore(backend, logger.NewNop(), "commonjs")
	require.NoError(t, err)
	_, found, err = other.Get(ctx, "k", "v")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreCorruptEntry(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Put("babel:k", []byte("plain text"))

	store, err := NewMemoryStore(backend, logger.NewNop(), "babel")
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "k", "v")
	assert.ErrorIs(t, err, types.ErrCacheEntryCorrupt)
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(nil, logger.NewNop(), "babel")
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.Close(), types.ErrStoreClosed)

	_, _, err = store.Get(ctx, "k", "v")
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	assert.ErrorIs(t, store.Set(ctx, "k", "v", 1), types.ErrStoreClosed)
}

func TestMemoryStoreValidation(t *testing.T) {
	_, err := NewMemoryStore(nil, logger.NewNop(), "")
	assert.ErrorIs(t, err, types.ErrNamespaceEmpty)

	_, err = NewMemoryStore(nil, logger.NewNop(), "vite:css")
	assert.ErrorIs(t, err, types.ErrNamespaceInvalid)

	store, err := NewMemoryStore(nil, logger.NewNop(), "babel")
	require.NoError(t, err)
	assert.ErrorIs(t, store.Set(context.Background(), "", "v", 1), types.ErrCacheKeyEmpty)
}

func TestValidateNamespace(t *testing.T) {
	assert.NoError(t, validateNamespace("node-resolve"))
	assert.ErrorIs(t, validateNamespace(""), types.ErrNamespaceEmpty)

	// "a:b" + "c" and "a" + "b:c" would otherwise share the full key "a:b:c".
	assert.Equal(t, buildFullKey("", "a:b", "c"), buildFullKey("", "a", "b:c"))
	assert.ErrorIs(t, validateNamespace("a:b"), types.ErrNamespaceInvalid)
}

func TestDecodeEntry(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		version   string
		wantFound bool
		wantRaw   string
		wantErr   error
	}{
		{name: "match", data: `{"version":"v","value":{"a":1}}`, version: "v", wantFound: true, wantRaw: `{"a":1}`},
		{name: "null value", data: `{"version":"v","value":null}`, version: "v", wantFound: true, wantRaw: "null"},
		{name: "missing value", data: `{"version":"v"}`, version: "v", wantFound: true, wantRaw: "null"},
		{name: "mismatch", data: `{"version":"old","value":1}`, version: "v"},
		{name: "missing version", data: `{"value":1}`, version: "v", wantErr: types.ErrCacheEntryCorrupt},
		{name: "not json", data: `nope`, version: "v", wantErr: types.ErrCacheEntryCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, found, err := decodeEntry("k", []byte(tt.data), tt.version)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.JSONEq(t, tt.wantRaw, string(raw))
			}
		})
	}
}

func TestBuildFullKey(t *testing.T) {
	assert.Equal(t, "babel:load:a.js", buildFullKey("", "babel", "load:a.js"))
	assert.Equal(t, "ci:babel:load:a.js", buildFullKey("ci", "babel", "load:a.js"))
}
