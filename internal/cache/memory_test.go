// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move a MemoryCache through time.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newClockedMemory(ttl time.Duration, maxSize int) (*MemoryCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(ttl, maxSize)
	c.now = clock.now
	return c, clock
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if _, err := c.Get(ctx, "settings"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get on empty cache error = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "settings", []byte(`{"site_name":"NGO"}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "settings")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"site_name":"NGO"}` {
		t.Errorf("Get = %s", got)
	}

	if err := c.Delete(ctx, "settings"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "settings"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	ctx := context.Background()

	value := []byte("original")
	_ = c.Set(ctx, "k", value, 0)
	value[0] = 'X'

	got, _ := c.Get(ctx, "k")
	got[1] = 'Y'

	again, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value changed to %q", again)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, clock := newClockedMemory(time.Minute, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "default", []byte("v"), 0)
	_ = c.Set(ctx, "short", []byte("v"), 10*time.Second)

	clock.advance(30 * time.Second)
	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("short entry error = %v, want ErrCacheMiss", err)
	}
	if _, err := c.Get(ctx, "default"); err != nil {
		t.Errorf("default entry expired early: %v", err)
	}

	clock.advance(time.Minute)
	if _, err := c.Get(ctx, "default"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("default entry error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_MaxSize(t *testing.T) {
	c, clock := newClockedMemory(time.Hour, 2)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "b", []byte("2b"), 0)
	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("a evicted by an overwrite: %v", err)
	}

	// A new key evicts the entry closest to expiry.
	_ = c.Set(ctx, "c", []byte("3"), 0)
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("a error = %v, want eviction", err)
	}
	for _, k := range []string{"b", "c"} {
		if _, err := c.Get(ctx, k); err != nil {
			t.Errorf("%s missing: %v", k, err)
		}
	}

	// Expired entries are swept before anything live is evicted.
	_ = c.Set(ctx, "b", []byte("2"), time.Second)
	clock.advance(2 * time.Second)
	_ = c.Set(ctx, "d", []byte("4"), 0)
	if _, err := c.Get(ctx, "c"); err != nil {
		t.Errorf("c evicted while an expired entry was available: %v", err)
	}
	if len(c.entries) != 2 {
		t.Errorf("entries = %d, want 2", len(c.entries))
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(time.Hour, 0)
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), 0)

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping on open cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close error = %v", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after Close error = %v", err)
	}
	if err := c.Ping(ctx); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Ping after Close error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(time.Hour, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d", (n*100+j)%80)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				if j%10 == 0 {
					_ = c.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()

	if n := len(c.entries); n > 50 {
		t.Errorf("entries = %d, exceeds max size 50", n)
	}
}
