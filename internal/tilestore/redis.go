package tilestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists tiles in Redis, keyed by the same
// hex(source)/method/z/x/y.terrain string FSStore uses as a path, with no
// expiry (terrain tiles are immutable for a given source+method+coordinate,
// so eviction is an operator decision, not a TTL).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses redisURL, pings the server once to fail fast on a
// bad connection string, and returns a ready Store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("tilestore: parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("tilestore: connect to redis: %w", err)
	}

	slog.Info("tile store connected", "backend", "redis", "host", opt.Addr)
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key.path()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key Key, data []byte) error {
	return s.client.Set(ctx, key.path(), data, 0).Err()
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
