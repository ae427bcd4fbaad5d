package keystore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		key:    redisKey(KeyName),
	}
}

// RedisStore keeps the access key in Redis without expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

func (r RedisStore) Get(ctx context.Context) (string, error) {
	value, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	if value == "" {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (r RedisStore) Set(ctx context.Context, key string) error {
	if err := r.client.Set(ctx, r.key, key, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func redisKey(name string) string {
	return fmt.Sprintf("basket:%s", name)
}
