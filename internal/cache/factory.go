// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Backend names reported by NewCacheWithInfo.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// redisConnectTimeout bounds the startup connection attempt.
const redisConnectTimeout = 5 * time.Second

// Config selects and sizes the cache.
type Config struct {
	RedisURL string // Redis is used when set
	Prefix   string // Redis key prefix
	TTL      time.Duration
	MaxSize  int // memory cache only

	// FallbackToMemory keeps the server starting when Redis is down.
	FallbackToMemory bool
}

// Result describes the cache NewCacheWithInfo built.
type Result struct {
	Cache      Cache
	Backend    string
	IsFallback bool
}

// NewCacheWithInfo builds a RedisCache when RedisURL is set and a
// MemoryCache otherwise.
func NewCacheWithInfo(ctx context.Context, cfg Config) (Result, error) {
	if cfg.RedisURL == "" {
		return Result{Cache: NewMemoryCache(cfg.TTL, cfg.MaxSize), Backend: BackendMemory}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()

	rc, err := NewRedisCache(ctx, cfg.RedisURL, cfg.Prefix, cfg.TTL)
	if err == nil {
		return Result{Cache: rc, Backend: BackendRedis}, nil
	}
	if !cfg.FallbackToMemory {
		return Result{}, fmt.Errorf("connecting to redis %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
	}

	slog.Warn("redis unavailable, settings are cached in memory",
		"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
	return Result{Cache: NewMemoryCache(cfg.TTL, cfg.MaxSize), Backend: BackendMemory, IsFallback: true}, nil
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
