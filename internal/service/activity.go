// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the application services that sit between HTTP
// handlers and the store: the activity log and the cached site settings.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/scheduler"
	"github.com/olegiv/ngocms/internal/store"
	"github.com/olegiv/ngocms/internal/util"
)

// ActivityCleanupJobName is the scheduler name of the retention job.
const ActivityCleanupJobName = "activity-cleanup"

// Paging defaults for activity log listings.
const (
	DefaultActivityPageSize = 20
	MaxActivityPageSize     = 100
)

// ActivityEntry is one activity log record to be written.
type ActivityEntry struct {
	UserID     *int64
	Action     string
	ActionType string
	Details    map[string]any
	Status     string
	IPAddress  string
}

// ActivityFilter selects a page of activity log entries.
type ActivityFilter struct {
	UserID     *int64
	ActionType string
	Page       int
	PerPage    int
}

// ActivityPage is one page of entries plus the total match count.
type ActivityPage struct {
	Entries []store.ActivityLog
	Total   int64
	Page    int
	PerPage int
}

// ActivityService appends to and reads from the activity log.
type ActivityService struct {
	queries *store.Queries
}

// NewActivityService creates a new ActivityService.
func NewActivityService(db *sql.DB) *ActivityService {
	return &ActivityService{queries: store.New(db)}
}

// Log appends an entry. Status defaults to success.
func (s *ActivityService) Log(ctx context.Context, e ActivityEntry) error {
	status := e.Status
	if status == "" {
		status = model.ActivityStatusSuccess
	}

	details := "{}"
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			details = string(b)
		}
	}

	now := time.Now().UTC()
	_, err := s.queries.CreateActivityLog(ctx, store.CreateActivityLogParams{
		UserID:     util.NullInt64FromPtr(e.UserID),
		Action:     e.Action,
		ActionType: e.ActionType,
		Details:    details,
		Status:     status,
		IpAddress:  e.IPAddress,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first.
func (s *ActivityService) List(ctx context.Context, f ActivityFilter) (ActivityPage, error) {
	page, perPage := normalizePaging(f.Page, f.PerPage)

	userID := util.NullInt64FromPtr(f.UserID)
	actionType := util.NullStringFromValue(f.ActionType)

	total, err := s.queries.CountActivityLogs(ctx, store.CountActivityLogsParams{
		UserID:     userID,
		ActionType: actionType,
	})
	if err != nil {
		return ActivityPage{}, fmt.Errorf("counting activity logs: %w", err)
	}

	entries, err := s.queries.ListActivityLogs(ctx, store.ListActivityLogsParams{
		UserID:     userID,
		ActionType: actionType,
		Limit:      int64(perPage),
		Offset:     int64((page - 1) * perPage),
	})
	if err != nil {
		return ActivityPage{}, fmt.Errorf("listing activity logs: %w", err)
	}

	return ActivityPage{Entries: entries, Total: total, Page: page, PerPage: perPage}, nil
}

// DeleteOlderThan removes entries older than the given age and returns the
// number of rows removed.
func (s *ActivityService) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	n, err := s.queries.DeleteActivityLogsBefore(ctx, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("deleting old activity logs: %w", err)
	}
	return n, nil
}

// CleanupJob returns a scheduler job that deletes entries older than
// retention.
func (s *ActivityService) CleanupJob(schedule string, retention time.Duration) scheduler.Job {
	return scheduler.Job{
		Name:     ActivityCleanupJobName,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := s.DeleteOlderThan(ctx, retention)
			return err
		},
	}
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage <= 0:
		perPage = DefaultActivityPageSize
	case perPage > MaxActivityPageSize:
		perPage = MaxActivityPageSize
	}
	return page, perPage
}
