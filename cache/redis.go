package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-hookcache/types"
	"github.com/saiset-co/sai-hookcache/utils"
)

type RedisConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	Password           string `json:"password"`
	DB                 int    `json:"db"`
	PoolSize           int    `json:"pool_size"`
	MinIdleConnections int    `json:"min_idle_connections"`
	DialTimeout        string `json:"dial_timeout"`
	ReadTimeout        string `json:"read_timeout"`
	WriteTimeout       string `json:"write_timeout"`
	PingTimeout        string `json:"ping_timeout"`
	KeyPrefix          string `json:"key_prefix"`
}

func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		Password:           "",
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 1,
		DialTimeout:        "5s",
		ReadTimeout:        "3s",
		WriteTimeout:       "3s",
		PingTimeout:        "5s",
		KeyPrefix:          "",
	}
}

// ParseRedisConfig decodes a free-form store config block over the defaults.
func ParseRedisConfig(config interface{}) (*RedisConfig, error) {
	redisConfig := DefaultRedisConfig()

	if config != nil {
		if err := utils.UnmarshalConfig(config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis store config")
		}
	}

	for name, value := range map[string]string{
		"dial_timeout":  redisConfig.DialTimeout,
		"read_timeout":  redisConfig.ReadTimeout,
		"write_timeout": redisConfig.WriteTimeout,
		"ping_timeout":  redisConfig.PingTimeout,
	} {
		if _, err := parseTimeout(value); err != nil {
			return nil, types.Errorf(types.ErrConfigValidateFailed, "%s: %v", name, err)
		}
	}

	return redisConfig, nil
}

// RedisStore is a CacheStore holding one dedicated Redis connection pool.
type RedisStore struct {
	logger    types.Logger
	config    *RedisConfig
	namespace string
	client    *redis.Client
	closed    int32
}

func NewRedisStore(ctx context.Context, logger types.Logger, namespace string, config *RedisConfig) (*RedisStore, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	if config == nil {
		config = DefaultRedisConfig()
	}

	store := &RedisStore{
		logger:    logger,
		config:    config,
		namespace: namespace,
	}

	if err := store.initRedisClient(); err != nil {
		return nil, types.WrapError(err, "failed to initialize redis client")
	}

	if err := store.ping(ctx); err != nil {
		_ = store.client.Close()
		return nil, types.Wrapf(types.ErrCacheConnectionFailed, err, "namespace: %s", namespace)
	}

	logger.Debug("Redis store opened",
		zap.String("namespace", namespace),
		zap.String("addr", store.client.Options().Addr))

	return store, nil
}

func (r *RedisStore) Namespace() string {
	return r.namespace
}

func (r *RedisStore) Get(ctx context.Context, key, version string) (json.RawMessage, bool, error) {
	if key == "" {
		return nil, false, types.ErrCacheKeyEmpty
	}

	if atomic.LoadInt32(&r.closed) == 1 {
		return nil, false, types.ErrStoreClosed
	}

	data, err := r.client.Get(ctx, r.buildFullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return nil, false, nil
		}
		r.logger.Error("failed to get cache entry", zap.String("namespace", r.namespace), zap.String("key", key), zap.Error(err))
		return nil, false, types.Wrapf(types.ErrCacheOperationFailed, err, "get %s", key)
	}

	return decodeEntry(key, data, version)
}

func (r *RedisStore) Set(ctx context.Context, key, version string, value interface{}) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if atomic.LoadInt32(&r.closed) == 1 {
		return types.ErrStoreClosed
	}

	data, err := encodeEntry(version, value)
	if err != nil {
		return types.WrapError(err, "failed to marshal cache entry")
	}

	if err := r.client.Set(ctx, r.buildFullKey(key), data, 0).Err(); err != nil {
		r.logger.Error("failed to set cache entry", zap.String("namespace", r.namespace), zap.String("key", key), zap.Error(err))
		return types.Wrapf(types.ErrCacheOperationFailed, err, "set %s", key)
	}

	return nil
}

func (r *RedisStore) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return types.ErrStoreClosed
	}

	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis client", zap.String("namespace", r.namespace), zap.Error(err))
		return types.WrapError(err, "failed to close redis client")
	}

	r.logger.Debug("Redis store closed", zap.String("namespace", r.namespace))
	return nil
}

func (r *RedisStore) initRedisClient() error {
	dialTimeout, err := parseTimeout(r.config.DialTimeout)
	if err != nil {
		return err
	}
	readTimeout, err := parseTimeout(r.config.ReadTimeout)
	if err != nil {
		return err
	}
	writeTimeout, err := parseTimeout(r.config.WriteTimeout)
	if err != nil {
		return err
	}

	r.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", r.config.Host, r.config.Port),
		Password:     r.config.Password,
		DB:           r.config.DB,
		PoolSize:     r.config.PoolSize,
		MinIdleConns: r.config.MinIdleConnections,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	return nil
}

func (r *RedisStore) ping(ctx context.Context) error {
	timeout, err := parseTimeout(r.config.PingTimeout)
	if err != nil {
		return err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) buildFullKey(key string) string {
	return buildFullKey(r.config.KeyPrefix, r.namespace, key)
}

// parseTimeout accepts Go duration strings; empty means no timeout.
func parseTimeout(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
