// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Query methods for queries/activity_logs.sql. Keep the two in sync.

package store

import (
	"context"
	"database/sql"
	"time"
)

const countActivityLogs = `-- name: CountActivityLogs :one
SELECT COUNT(*) FROM activity_logs
WHERE (? IS NULL OR user_id = ?)
  AND (? IS NULL OR action_type = ?)
`

type CountActivityLogsParams struct {
	UserID     sql.NullInt64  `json:"user_id"`
	ActionType sql.NullString `json:"action_type"`
}

func (q *Queries) CountActivityLogs(ctx context.Context, arg CountActivityLogsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActivityLogs,
		arg.UserID,
		arg.UserID,
		arg.ActionType,
		arg.ActionType,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createActivityLog = `-- name: CreateActivityLog :execresult
INSERT INTO activity_logs (user_id, action, action_type, details, status, ip_address, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateActivityLogParams struct {
	UserID     sql.NullInt64 `json:"user_id"`
	Action     string        `json:"action"`
	ActionType string        `json:"action_type"`
	Details    string        `json:"details"`
	Status     string        `json:"status"`
	IpAddress  string        `json:"ip_address"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createActivityLog,
		arg.UserID,
		arg.Action,
		arg.ActionType,
		arg.Details,
		arg.Status,
		arg.IpAddress,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
}

const deleteActivityLogsBefore = `-- name: DeleteActivityLogsBefore :execrows
DELETE FROM activity_logs WHERE created_at < ?
`

func (q *Queries) DeleteActivityLogsBefore(ctx context.Context, createdAt time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteActivityLogsBefore, createdAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listActivityLogs = `-- name: ListActivityLogs :many
SELECT id, user_id, action, action_type, details, status, ip_address, created_at, updated_at FROM activity_logs
WHERE (? IS NULL OR user_id = ?)
  AND (? IS NULL OR action_type = ?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

type ListActivityLogsParams struct {
	UserID     sql.NullInt64  `json:"user_id"`
	ActionType sql.NullString `json:"action_type"`
	Limit      int64          `json:"limit"`
	Offset     int64          `json:"offset"`
}

func (q *Queries) ListActivityLogs(ctx context.Context, arg ListActivityLogsParams) ([]ActivityLog, error) {
	rows, err := q.db.QueryContext(ctx, listActivityLogs,
		arg.UserID,
		arg.UserID,
		arg.ActionType,
		arg.ActionType,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ActivityLog{}
	for rows.Next() {
		var i ActivityLog
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Action,
			&i.ActionType,
			&i.Details,
			&i.Status,
			&i.IpAddress,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
