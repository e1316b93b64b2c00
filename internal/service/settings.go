// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/olegiv/ngocms/internal/cache"
	"github.com/olegiv/ngocms/internal/store"
)

const settingsCacheKey = "settings:all"

// MaxSettingNameLength bounds setting names accepted by Replace.
const MaxSettingNameLength = 100

// ErrInvalidSetting is returned by Replace for empty or oversized names.
var ErrInvalidSetting = errors.New("invalid setting name")

// SettingsService serves the site settings map from cache and replaces it
// atomically.
type SettingsService struct {
	db      *sql.DB
	queries *store.Queries
	cache   *cache.TypedCache[map[string]string]
}

// NewSettingsService creates a SettingsService backed by c.
func NewSettingsService(db *sql.DB, c cache.Cache, ttl time.Duration) *SettingsService {
	return &SettingsService{
		db:      db,
		queries: store.New(db),
		cache:   cache.NewTypedCache[map[string]string](c, ttl),
	}
}

// All returns every setting as a name/value map.
func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	return s.cache.GetOrSet(ctx, settingsCacheKey, s.load)
}

// Get returns a single setting.
func (s *SettingsService) Get(ctx context.Context, name string) (string, bool, error) {
	all, err := s.All(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := all[name]
	return v, ok, nil
}

func (s *SettingsService) load(ctx context.Context) (map[string]string, error) {
	rows, err := s.queries.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}

// Replace swaps the whole settings map in one transaction.
func (s *SettingsService) Replace(ctx context.Context, values map[string]string) error {
	names := make([]string, 0, len(values))
	for name := range values {
		if strings.TrimSpace(name) == "" || len(name) > MaxSettingNameLength {
			return fmt.Errorf("%w: %q", ErrInvalidSetting, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)
	if err := qtx.DeleteAllSettings(ctx); err != nil {
		return fmt.Errorf("clearing settings: %w", err)
	}

	now := time.Now().UTC()
	for _, name := range names {
		if err := qtx.CreateSetting(ctx, store.CreateSettingParams{
			Name:      name,
			Value:     values[name],
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("saving setting %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}

	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached map. Called after Replace and after a backup
// import rewrites the settings table.
func (s *SettingsService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, settingsCacheKey); err != nil {
		slog.Warn("failed to invalidate settings cache", "error", err)
	}
}
