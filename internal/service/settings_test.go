// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ngocms/internal/cache"
	"github.com/olegiv/ngocms/internal/testutil"
)

func newSettingsService(t *testing.T) (*SettingsService, func()) {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	mem := cache.NewMemoryCache(time.Hour, 0)
	return NewSettingsService(db, mem, time.Hour), func() {
		_ = mem.Close()
		cleanup()
	}
}

func TestSettingsService_ReplaceAndAll(t *testing.T) {
	svc, cleanup := newSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, svc.Replace(ctx, map[string]string{
		"site_name":     "Friends of the River",
		"contact_email": "info@example.org",
	}))

	all, err = svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Friends of the River", all["site_name"])
	assert.Len(t, all, 2)

	require.NoError(t, svc.Replace(ctx, map[string]string{"site_name": "Renamed"}))

	v, ok, err := svc.Get(ctx, "site_name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Renamed", v)

	_, ok, _ = svc.Get(ctx, "contact_email")
	assert.False(t, ok, "Replace must drop settings missing from the new map")
}

func TestSettingsService_CacheInvalidation(t *testing.T) {
	svc, cleanup := newSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, svc.Replace(ctx, map[string]string{"a": "1"}))
	_, _ = svc.All(ctx)

	// Write behind the service's back; the cached copy is still served.
	_, err := svc.db.Exec(`UPDATE settings SET value = '2' WHERE name = 'a'`)
	require.NoError(t, err)

	v, _, _ := svc.Get(ctx, "a")
	assert.Equal(t, "1", v)

	svc.Invalidate(ctx)

	v, _, _ = svc.Get(ctx, "a")
	assert.Equal(t, "2", v)
}

func TestSettingsService_ReplaceRejectsBadNames(t *testing.T) {
	svc, cleanup := newSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, svc.Replace(ctx, map[string]string{"keep": "me"}))

	err := svc.Replace(ctx, map[string]string{"": "x", "ok": "y"})
	assert.True(t, errors.Is(err, ErrInvalidSetting))

	all, _ := svc.All(ctx)
	assert.Equal(t, map[string]string{"keep": "me"}, all)
}
