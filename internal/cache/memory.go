// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryCache keeps entries in a map guarded by a mutex. Expired entries
// are dropped when read, and swept when the cache reaches maxSize.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	maxSize int
	closed  bool
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache returns a cache whose entries live for ttl unless Set is
// given another duration. maxSize bounds the number of keys; zero means
// unbounded.
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the stored value.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCacheClosed
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, ErrCacheMiss
	}
	return bytes.Clone(e.value), nil
}

// Set stores a copy of value, making room first when the cache is full.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.makeRoom()
	}
	c.entries[key] = memoryEntry{value: bytes.Clone(value), expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	delete(c.entries, key)
	return nil
}

// Ping fails only once the cache is closed.
func (c *MemoryCache) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheClosed
	}
	return nil
}

// Close drops every entry. Later calls fail with ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.entries = nil
	return nil
}

// makeRoom removes expired entries, then the one closest to expiry if the
// cache is still full. Called with mu held.
func (c *MemoryCache) makeRoom() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if victim == "" || e.expires.Before(soonest) {
			victim, soonest = k, e.expires
		}
	}
	delete(c.entries, victim)
}

var _ Cache = (*MemoryCache)(nil)
