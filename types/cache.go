package types

import (
	"context"
	"encoding/json"
)

// CacheStore is a version gated key/value store bound to one namespace.
//
// Get reports false when no entry exists or the stored version differs from
// version. A true result with a JSON null value is a cached empty result.
type CacheStore interface {
	Get(ctx context.Context, key, version string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key, version string, value interface{}) error
	Close() error
	Namespace() string
}

// StoreOpener opens a store for one namespace. Each call returns a store that
// owns its own connection.
type StoreOpener func(ctx context.Context, namespace string) (CacheStore, error)

type StoreCreator func(ctx context.Context, namespace string, config interface{}) (CacheStore, error)

// CacheEntry is the envelope persisted for every key.
type CacheEntry struct {
	Version string      `json:"version"`
	Value   interface{} `json:"value"`
}

// StoredEntry is CacheEntry as read back, with the value left undecoded.
type StoredEntry struct {
	Version *string         `json:"version"`
	Value   json.RawMessage `json:"value"`
}
