package cache

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/saiset-co/sai-hookcache/types"
)

// MockStore is a mock implementation of types.CacheStore for testing.
type MockStore struct {
	mock.Mock
}

var _ types.CacheStore = &MockStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockStore) Get(ctx context.Context, key, version string) (json.RawMessage, bool, error) {
	args := m.Called(ctx, key, version)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Bool(1), args.Error(2)
}

// Set implements the CacheStore interface.
func (m *MockStore) Set(ctx context.Context, key, version string, value interface{}) error {
	args := m.Called(ctx, key, version, value)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Namespace implements the CacheStore interface.
func (m *MockStore) Namespace() string {
	args := m.Called()
	return args.String(0)
}
