package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store defines the key-value operations used by the cache layer.
type Store interface {
	// Keys returns every key matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// HGetAll returns all fields of a hash. A missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet writes the given fields into a hash.
	HSet(ctx context.Context, key string, fields map[string]string) error
	// Replace deletes key and every drop key, then writes fields as the new
	// content of key. Both steps run in one MULTI/EXEC transaction.
	Replace(ctx context.Context, key string, fields map[string]string, drop ...string) error
	// RPush appends values to a list.
	RPush(ctx context.Context, key string, values ...string) error
	// LRange returns list elements between start and stop (inclusive, negative from the end).
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// Close releases the connection.
	Close() error
}

// Connector opens a Store. Each call returns an independent connection.
type Connector interface {
	Connect(ctx context.Context) (Store, error)
}

// RedisConnector opens connections to a Redis server.
type RedisConnector struct {
	cfg Config
}

// NewRedisConnector creates a connector for the given configuration.
func NewRedisConnector(cfg Config) *RedisConnector {
	return &RedisConnector{cfg: cfg}
}

// Connect dials Redis and verifies the connection with PING.
func (c *RedisConnector) Connect(ctx context.Context) (Store, error) {
	timeout := c.cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	d := time.Duration(timeout) * time.Second

	client := redis.NewClient(&redis.Options{
		Addr:         c.cfg.Addr,
		Password:     c.cfg.Password,
		DB:           c.cfg.DB,
		DialTimeout:  d,
		ReadTimeout:  d,
		WriteTimeout: d,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", c.cfg.Addr, err)
	}

	return &redisStore{client: client}, nil
}

type redisStore struct {
	client *redis.Client
}

func (s *redisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.client.Keys(ctx, pattern).Result()
}

func (s *redisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *redisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return s.client.HSet(ctx, key, values).Err()
}

func (s *redisStore) Replace(ctx context.Context, key string, fields map[string]string, drop ...string) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, append([]string{key}, drop...)...)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	return err
}

func (s *redisStore) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.client.RPush(ctx, key, args...).Err()
}

func (s *redisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
