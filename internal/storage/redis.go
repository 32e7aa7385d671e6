package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/drewfead/moviebuddy/internal"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "moviebuddy:"

type redisStorage struct {
	client redis.UniversalClient
	prefix string
}

// Redis stores items as plain string keys under prefix.
func Redis(client redis.UniversalClient, prefix string) internal.Storage {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &redisStorage{client: client, prefix: prefix}
}

func openRedis(ctx context.Context, u *url.URL) (internal.Storage, error) {
	prefix := u.Query().Get("prefix")
	stripped := *u
	q := stripped.Query()
	q.Del("prefix")
	stripped.RawQuery = q.Encode()
	opts, err := redis.ParseURL(stripped.String())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return Redis(client, prefix), nil
}

func (r *redisStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *redisStorage) SetItem(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *redisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
