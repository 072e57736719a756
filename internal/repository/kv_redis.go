package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisKVRepositoryImpl keeps the draft blob in a plain redis string key.
// Several service instances may point at the same key; the last SET wins.
type RedisKVRepositoryImpl struct {
	rdb *goredis.Client
}

// NewRedisKVRepository connects and pings the server
func NewRedisKVRepository(addr string, db int) (*RedisKVRepositoryImpl, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisKVRepositoryImpl{rdb: rdb}, nil
}

// NewRedisKVRepositoryFromClient wraps an existing client
func NewRedisKVRepositoryFromClient(rdb *goredis.Client) *RedisKVRepositoryImpl {
	return &RedisKVRepositoryImpl{rdb: rdb}
}

// Get returns nil, nil for a missing key
func (r *RedisKVRepositoryImpl) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Set stores the value without expiry
func (r *RedisKVRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKVRepositoryImpl) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
