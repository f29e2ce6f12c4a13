package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
)

// MemoryBackend is a process local key space shared by MemoryStores. Entries
// are kept serialized so reads go through the same envelope decoding as Redis.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) get(fullKey string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.data[fullKey]
	if !ok {
		return nil, false
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

func (b *MemoryBackend) set(fullKey string, data []byte) {
	b.mu.Lock()
	b.data[fullKey] = data
	b.mu.Unlock()
}

// Raw returns the serialized record stored under fullKey.
func (b *MemoryBackend) Raw(fullKey string) ([]byte, bool) {
	return b.get(fullKey)
}

// Put writes a serialized record under fullKey, bypassing any store.
func (b *MemoryBackend) Put(fullKey string, data []byte) {
	b.set(fullKey, data)
}

func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

type MemoryStore struct {
	backend   *MemoryBackend
	logger    types.Logger
	namespace string
	closed    int32
}

func NewMemoryStore(backend *MemoryBackend, logger types.Logger, namespace string) (*MemoryStore, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	if backend == nil {
		backend = NewMemoryBackend()
	}

	return &MemoryStore{
		backend:   backend,
		logger:    logger,
		namespace: namespace,
	}, nil
}

func (m *MemoryStore) Namespace() string {
	return m.namespace
}

func (m *MemoryStore) Get(_ context.Context, key, version string) (json.RawMessage, bool, error) {
	if key == "" {
		return nil, false, types.ErrCacheKeyEmpty
	}

	if atomic.LoadInt32(&m.closed) == 1 {
		return nil, false, types.ErrStoreClosed
	}

	data, ok := m.backend.get(buildFullKey("", m.namespace, key))
	if !ok {
		return nil, false, nil
	}

	return decodeEntry(key, data, version)
}

func (m *MemoryStore) Set(_ context.Context, key, version string, value interface{}) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if atomic.LoadInt32(&m.closed) == 1 {
		return types.ErrStoreClosed
	}

	data, err := encodeEntry(version, value)
	if err != nil {
		return types.WrapError(err, "failed to marshal cache entry")
	}

	m.backend.set(buildFullKey("", m.namespace, key), data)
	return nil
}

func (m *MemoryStore) Close() error {
	if !atomic.CompareAndSwapInt32(&m.closed, 0, 1) {
		return types.ErrStoreClosed
	}

	m.logger.Debug("Memory store closed", zap.String("namespace", m.namespace))
	return nil
}
