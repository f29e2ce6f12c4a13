//go:build integration

package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saiset-co/sai-hookcache/logger"
)

// TestRedisStoreWithServer runs the store against a real Redis server.
func TestRedisStoreWithServer(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	config := DefaultRedisConfig()
	config.Host = host
	config.Port, err = strconv.Atoi(port.Port())
	require.NoError(t, err)
	config.KeyPrefix = "it"

	store, err := NewRedisStore(ctx, logger.NewNop(), "babel", config)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "transform:a.js", "v1", map[string]string{"code": "A"}))
	require.NoError(t, store.Close())

	// A second build opens a fresh store and hits the entry the first wrote.
	store, err = NewRedisStore(ctx, logger.NewNop(), "babel", config)
	require.NoError(t, err)
	defer store.Close()

	raw, found, err := store.Get(ctx, "transform:a.js", "v1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"code":"A"}`, string(raw))

	_, found, err = store.Get(ctx, "transform:a.js", "v2")
	require.NoError(t, err)
	assert.False(t, found)
}
