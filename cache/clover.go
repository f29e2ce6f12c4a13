package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
	"github.com/saiset-co/sai-hookcache/utils"
)

const (
	cloverKeyField   = "key"
	cloverEntryField = "entry"
	cloverDirName    = "hookcache"
)

type CloverConfig struct {
	Path string `json:"path"`
}

// ParseCloverConfig decodes the store config block. An empty path falls back
// to <cacheRoot>/hookcache.
func ParseCloverConfig(config interface{}, cacheRoot string) (*CloverConfig, error) {
	cloverConfig := &CloverConfig{}

	if config != nil {
		if err := utils.UnmarshalConfig(config, cloverConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal clover store config")
		}
	}

	if cloverConfig.Path == "" {
		if cacheRoot == "" {
			return nil, types.Errorf(types.ErrConfigValidateFailed, "clover store needs a path or a cache root")
		}
		cloverConfig.Path = filepath.Join(cacheRoot, cloverDirName)
	}

	return cloverConfig, nil
}

// CloverBackend shares one on-disk database between the stores of an opener.
// The database is opened by the first store and closed with the last one.
type CloverBackend struct {
	logger types.Logger
	path   string
	mu     sync.Mutex
	db     *clover.DB
	refs   int
}

func NewCloverBackend(logger types.Logger, config *CloverConfig) *CloverBackend {
	return &CloverBackend{
		logger: logger,
		path:   config.Path,
	}
}

func (b *CloverBackend) acquire(namespace string) (*clover.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		db, err := clover.Open(b.path)
		if err != nil {
			return nil, types.Wrapf(types.ErrCacheConnectionFailed, err, "path: %s", b.path)
		}
		b.db = db
		b.logger.Debug("Clover database opened", zap.String("path", b.path))
	}

	if err := b.ensureCollection(namespace); err != nil {
		if b.refs == 0 {
			_ = b.db.Close()
			b.db = nil
		}
		return nil, err
	}

	b.refs++
	return b.db, nil
}

func (b *CloverBackend) ensureCollection(namespace string) error {
	exists, err := b.db.HasCollection(namespace)
	if err != nil {
		return types.Wrapf(types.ErrCacheOperationFailed, err, "check collection %s", namespace)
	}

	if exists {
		return nil
	}

	if err := b.db.CreateCollection(namespace); err != nil {
		return types.Wrapf(types.ErrCacheOperationFailed, err, "create collection %s", namespace)
	}
	return nil
}

func (b *CloverBackend) release() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refs--
	if b.refs > 0 || b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	if err != nil {
		return types.WrapError(err, "failed to close clover database")
	}

	b.logger.Debug("Clover database closed", zap.String("path", b.path))
	return nil
}

// CloverStore keeps one collection per namespace. Each document holds the
// cache key and the serialized envelope.
type CloverStore struct {
	backend   *CloverBackend
	db        *clover.DB
	logger    types.Logger
	namespace string
	writeMu   sync.Mutex
	closed    int32
}

func NewCloverStore(backend *CloverBackend, logger types.Logger, namespace string) (*CloverStore, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	db, err := backend.acquire(namespace)
	if err != nil {
		return nil, err
	}

	return &CloverStore{
		backend:   backend,
		db:        db,
		logger:    logger,
		namespace: namespace,
	}, nil
}

func (c *CloverStore) Namespace() string {
	return c.namespace
}

func (c *CloverStore) Get(_ context.Context, key, version string) (json.RawMessage, bool, error) {
	if key == "" {
		return nil, false, types.ErrCacheKeyEmpty
	}

	if atomic.LoadInt32(&c.closed) == 1 {
		return nil, false, types.ErrStoreClosed
	}

	docs, err := c.query(key).FindAll()
	if err != nil {
		return nil, false, types.Wrapf(types.ErrCacheOperationFailed, err, "get %s", key)
	}

	if len(docs) == 0 {
		return nil, false, nil
	}

	fields := make(map[string]interface{})
	if err := docs[0].Unmarshal(&fields); err != nil {
		return nil, false, types.Wrapf(types.ErrCacheEntryCorrupt, err, "key: %s", key)
	}

	entry, ok := fields[cloverEntryField].(string)
	if !ok {
		return nil, false, types.Errorf(types.ErrCacheEntryCorrupt, "key: %s: missing entry", key)
	}

	return decodeEntry(key, []byte(entry), version)
}

func (c *CloverStore) Set(_ context.Context, key, version string, value interface{}) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if atomic.LoadInt32(&c.closed) == 1 {
		return types.ErrStoreClosed
	}

	data, err := encodeEntry(version, value)
	if err != nil {
		return types.WrapError(err, "failed to marshal cache entry")
	}

	entry := utils.BytesToString(data)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	query := c.query(key)

	count, err := query.Count()
	if err != nil {
		return types.Wrapf(types.ErrCacheOperationFailed, err, "count %s", key)
	}

	if count > 0 {
		if err := query.Update(map[string]interface{}{cloverEntryField: entry}); err != nil {
			return types.Wrapf(types.ErrCacheOperationFailed, err, "update %s", key)
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.Set(cloverKeyField, key)
	doc.Set(cloverEntryField, entry)

	if err := c.db.Insert(c.namespace, doc); err != nil {
		return types.Wrapf(types.ErrCacheOperationFailed, err, "insert %s", key)
	}

	return nil
}

func (c *CloverStore) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return types.ErrStoreClosed
	}

	if err := c.backend.release(); err != nil {
		c.logger.Error("Failed to release clover database", zap.String("namespace", c.namespace), zap.Error(err))
		return err
	}

	return nil
}

func (c *CloverStore) query(key string) *clover.Query {
	return c.db.Query(c.namespace).Where(clover.Field(cloverKeyField).Eq(key))
}
