package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gzhole/personaguard/internal/learning"
)

// DefaultRedisKey is the key used when RedisConfig.Key is empty.
const DefaultRedisKey = "personaguard:snapshot"

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Key string        // snapshot key, default DefaultRedisKey
	TTL time.Duration // 0 = no expiry
}

// RedisStore keeps the snapshot under one string key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, config ...RedisConfig) *RedisStore {
	cfg := RedisConfig{Key: DefaultRedisKey}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: cfg.Key, ttl: cfg.TTL}
}

// OpenRedisStore connects to the server at a redis:// URL.
func OpenRedisStore(ctx context.Context, url string, config ...RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, config...), nil
}

func (r *RedisStore) Load(ctx context.Context) (*learning.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return Decode(data)
}

func (r *RedisStore) Save(ctx context.Context, s *learning.Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
