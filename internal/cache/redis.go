// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis under a key prefix, so several
// ngocms instances share one settings cache and a settings update made
// on one is seen by all.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to rawURL (redis://[user:pass@]host:port/db) and
// checks the connection before returning.
func NewRedisCache(ctx context.Context, rawURL, prefix string, ttl time.Duration) (*RedisCache, error) {
	if rawURL == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

// Get maps redis.Nil to ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case errors.Is(err, redis.ErrClosed):
		return nil, ErrCacheClosed
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.wrap(c.client.Set(ctx, c.prefix+key, value, ttl).Err())
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.wrap(c.client.Del(ctx, c.prefix+key).Err())
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.wrap(c.client.Ping(ctx).Err())
}

// Close releases the connection pool. Closing twice is not an error.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func (c *RedisCache) wrap(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrCacheClosed
	}
	return err
}

var _ Cache = (*RedisCache)(nil)
