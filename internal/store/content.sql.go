// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Query methods for queries/content.sql. Keep the two in sync.

package store

import (
	"context"
	"database/sql"
	"time"
)

const createArticle = `-- name: CreateArticle :execresult
INSERT INTO articles (user_id, section_id, category_id, title, slug, summary, body, status, publish_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateArticleParams struct {
	UserID      int64         `json:"user_id"`
	SectionID   sql.NullInt64 `json:"section_id"`
	CategoryID  sql.NullInt64 `json:"category_id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Summary     string        `json:"summary"`
	Body        string        `json:"body"`
	Status      string        `json:"status"`
	PublishDate sql.NullTime  `json:"publish_date"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createArticle,
		arg.UserID,
		arg.SectionID,
		arg.CategoryID,
		arg.Title,
		arg.Slug,
		arg.Summary,
		arg.Body,
		arg.Status,
		arg.PublishDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
}

const createCategory = `-- name: CreateCategory :execresult
INSERT INTO categories (user_id, section_id, name, slug, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateCategoryParams struct {
	UserID      int64     `json:"user_id"`
	SectionID   int64     `json:"section_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createCategory,
		arg.UserID,
		arg.SectionID,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
}

const createContactMessage = `-- name: CreateContactMessage :execresult
INSERT INTO contact_messages (name, email, subject, message, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateContactMessageParams struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createContactMessage,
		arg.Name,
		arg.Email,
		arg.Subject,
		arg.Message,
		arg.IsRead,
		arg.CreatedAt,
	)
}

const createNews = `-- name: CreateNews :execresult
INSERT INTO news (user_id, title, slug, summary, body, status, publish_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateNewsParams struct {
	UserID      int64        `json:"user_id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Summary     string       `json:"summary"`
	Body        string       `json:"body"`
	Status      string       `json:"status"`
	PublishDate sql.NullTime `json:"publish_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (q *Queries) CreateNews(ctx context.Context, arg CreateNewsParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createNews,
		arg.UserID,
		arg.Title,
		arg.Slug,
		arg.Summary,
		arg.Body,
		arg.Status,
		arg.PublishDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
}

const createReport = `-- name: CreateReport :execresult
INSERT INTO reports (user_id, title, slug, summary, body, file_url, status, publish_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateReportParams struct {
	UserID      int64        `json:"user_id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Summary     string       `json:"summary"`
	Body        string       `json:"body"`
	FileUrl     string       `json:"file_url"`
	Status      string       `json:"status"`
	PublishDate sql.NullTime `json:"publish_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (q *Queries) CreateReport(ctx context.Context, arg CreateReportParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createReport,
		arg.UserID,
		arg.Title,
		arg.Slug,
		arg.Summary,
		arg.Body,
		arg.FileUrl,
		arg.Status,
		arg.PublishDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
}

const createSection = `-- name: CreateSection :execresult
INSERT INTO sections (user_id, title, slug, description, status, position, publish_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateSectionParams struct {
	UserID      int64        `json:"user_id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Position    int64        `json:"position"`
	PublishDate sql.NullTime `json:"publish_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (q *Queries) CreateSection(ctx context.Context, arg CreateSectionParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createSection,
		arg.UserID,
		arg.Title,
		arg.Slug,
		arg.Description,
		arg.Status,
		arg.Position,
		arg.PublishDate,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
}

const getSectionBySlug = `-- name: GetSectionBySlug :one
SELECT id, user_id, title, slug, description, status, position, publish_date, created_at, updated_at FROM sections WHERE slug = ? LIMIT 1
`

func (q *Queries) GetSectionBySlug(ctx context.Context, slug string) (Section, error) {
	row := q.db.QueryRowContext(ctx, getSectionBySlug, slug)
	var i Section
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Title,
		&i.Slug,
		&i.Description,
		&i.Status,
		&i.Position,
		&i.PublishDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
