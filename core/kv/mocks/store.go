package mocks

import (
	"context"

	"experts-geo/core/kv"

	"github.com/stretchr/testify/mock"
)

// Store is a mock implementation of kv.Store
type Store struct {
	mock.Mock
}

func (m *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	args := m.Called(ctx, pattern)
	if keys, ok := args.Get(0).([]string); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if fields, ok := args.Get(0).(map[string]string); ok {
		return fields, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := m.Called(ctx, key, fields)
	return args.Error(0)
}

func (m *Store) Replace(ctx context.Context, key string, fields map[string]string, drop ...string) error {
	args := m.Called(ctx, key, fields, drop)
	return args.Error(0)
}

func (m *Store) RPush(ctx context.Context, key string, values ...string) error {
	args := m.Called(ctx, key, values)
	return args.Error(0)
}

func (m *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	args := m.Called(ctx, key, start, stop)
	if vals, ok := args.Get(0).([]string); ok {
		return vals, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Connector is a mock implementation of kv.Connector
type Connector struct {
	mock.Mock
}

func (m *Connector) Connect(ctx context.Context) (kv.Store, error) {
	args := m.Called(ctx)
	if s, ok := args.Get(0).(kv.Store); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
