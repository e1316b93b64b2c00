// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/store"
	"github.com/olegiv/ngocms/internal/testutil"
)

// fixture holds the ids of the rows seeded by seedContent.
type fixture struct {
	userID     int64
	sectionID  int64
	categoryID int64
	articleID  int64
	newsID     int64
}

// seedContent inserts one user plus one row in sections, categories,
// articles and news.
func seedContent(t *testing.T, db *sql.DB) fixture {
	t.Helper()

	ctx := context.Background()
	q := store.New(db)
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	user := testutil.CreateUser(t, db, "editor", model.RoleEditor, model.Permissions{"articles": {"view"}})
	f := fixture{userID: user.ID}

	res, err := q.CreateSection(ctx, store.CreateSectionParams{
		UserID:      user.ID,
		Title:       "Programs",
		Slug:        "programs",
		Description: "What we do",
		Status:      model.ContentStatusPublished,
		Position:    1,
		PublishDate: sql.NullTime{Time: now, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	f.sectionID, _ = res.LastInsertId()

	res, err = q.CreateCategory(ctx, store.CreateCategoryParams{
		UserID:    user.ID,
		SectionID: f.sectionID,
		Name:      "Water",
		Slug:      "water",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	f.categoryID, _ = res.LastInsertId()

	res, err = q.CreateArticle(ctx, store.CreateArticleParams{
		UserID:     user.ID,
		SectionID:  sql.NullInt64{Int64: f.sectionID, Valid: true},
		CategoryID: sql.NullInt64{Int64: f.categoryID, Valid: true},
		Title:      "Clean wells",
		Slug:       "clean-wells",
		Summary:    "Forty new wells",
		Body:       "<p>Forty new wells this year.</p>",
		Status:     model.ContentStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	f.articleID, _ = res.LastInsertId()

	res, err = q.CreateNews(ctx, store.CreateNewsParams{
		UserID:    user.ID,
		Title:     "Annual meeting",
		Slug:      "annual-meeting",
		Status:    model.ContentStatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	f.newsID, _ = res.LastInsertId()

	return f
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

var errPermission = &os.PathError{Op: "read", Path: "backup.json", Err: fs.ErrPermission}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
