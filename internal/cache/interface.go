// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache holds the read-through cache in front of site settings.
// Values are opaque bytes, so one process can use an in-memory map and a
// multi-instance deployment can share Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is implemented by MemoryCache and RedisCache. Implementations are
// safe for concurrent use.
type Cache interface {
	// Get returns ErrCacheMiss for absent or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error

	Close() error
}

var (
	ErrCacheMiss   = errors.New("cache miss")
	ErrCacheClosed = errors.New("cache closed")
)
