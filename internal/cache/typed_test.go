// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedCache_SetGetDelete(t *testing.T) {
	mem := NewMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()

	c := NewTypedCache[map[string]string](mem, time.Hour)
	ctx := context.Background()

	_, ok := c.Get(ctx, "settings")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "settings", map[string]string{"site_name": "NGO"}))

	got, ok := c.Get(ctx, "settings")
	require.True(t, ok)
	assert.Equal(t, "NGO", got["site_name"])

	require.NoError(t, c.Delete(ctx, "settings"))
	_, ok = c.Get(ctx, "settings")
	assert.False(t, ok)
}

func TestTypedCache_GetOrSet(t *testing.T) {
	mem := NewMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()

	c := NewTypedCache[[]int](mem, time.Hour)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	for range 3 {
		got, err := c.GetOrSet(ctx, "nums", load)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	}
	assert.Equal(t, 1, calls, "loader should run once")
}

func TestTypedCache_GetOrSetError(t *testing.T) {
	mem := NewMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()

	c := NewTypedCache[string](mem, time.Hour)
	boom := errors.New("boom")

	_, err := c.GetOrSet(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = mem.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss, "failed load must not be cached")
}

func TestTypedCache_CorruptValueIsMiss(t *testing.T) {
	mem := NewMemoryCache(time.Hour, 0)
	defer func() { _ = mem.Close() }()

	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "k", []byte("{not json"), 0))

	c := NewTypedCache[map[string]string](mem, time.Hour)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
