// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Query methods for queries/settings.sql. Keep the two in sync.

package store

import (
	"context"
	"time"
)

const createSetting = `-- name: CreateSetting :exec
INSERT INTO settings (name, value, updated_at) VALUES (?, ?, ?)
`

type CreateSettingParams struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) CreateSetting(ctx context.Context, arg CreateSettingParams) error {
	_, err := q.db.ExecContext(ctx, createSetting, arg.Name, arg.Value, arg.UpdatedAt)
	return err
}

const deleteAllSettings = `-- name: DeleteAllSettings :exec
DELETE FROM settings
`

func (q *Queries) DeleteAllSettings(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllSettings)
	return err
}

const getSetting = `-- name: GetSetting :one
SELECT id, name, value, updated_at FROM settings WHERE name = ? LIMIT 1
`

func (q *Queries) GetSetting(ctx context.Context, name string) (Setting, error) {
	row := q.db.QueryRowContext(ctx, getSetting, name)
	var i Setting
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Value,
		&i.UpdatedAt,
	)
	return i, err
}

const listSettings = `-- name: ListSettings :many
SELECT id, name, value, updated_at FROM settings ORDER BY name
`

func (q *Queries) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.QueryContext(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Setting{}
	for rows.Next() {
		var i Setting
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Value,
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
