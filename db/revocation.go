package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRevocationPrefix namespaces revoked token ids in redis.
const DefaultRevocationPrefix = "skmf:revoked:"

// RedisOptions selects the redis (or DragonflyDB) instance revoked tokens are kept in.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisRevocationStore records revoked token ids until the token would have
// expired anyway. DragonflyDB speaks the same protocol and works unchanged.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore connects to redis and pings it once.
func NewRedisRevocationStore(ctx context.Context, opts RedisOptions) (*RedisRevocationStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRevocationPrefix
	}
	return &RedisRevocationStore{client: client, prefix: prefix}, nil
}

func (s *RedisRevocationStore) key(jti string) string {
	return s.prefix + jti
}

// Revoke marks jti as revoked until the given time. A time in the past is a no-op.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errors.New("token id is required")
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(jti), until.UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked and has not yet expired.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token %s: %w", jti, err)
	}
	return n > 0, nil
}

// Ping checks the connection.
func (s *RedisRevocationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisRevocationStore) Close() error {
	return s.client.Close()
}
