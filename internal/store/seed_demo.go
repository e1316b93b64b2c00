// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ngocms/internal/auth"
	"github.com/olegiv/ngocms/internal/model"
)

// Demo editor credentials
const (
	DemoEditorUsername = "demo-editor"
	DemoEditorEmail    = "editor@example.org"
	DemoEditorPassword = "demo1234demo"
)

// demoSectionSlug marks the demo content as already present.
const demoSectionSlug = "our-work"

type demoArticle struct {
	title, slug, summary, body string
	category                   string
	published                  bool
}

var demoCategories = []struct{ name, slug, description string }{
	{"Clean Water", "clean-water", "Wells, filters and sanitation."},
	{"Education", "education", "Schools, teachers and scholarships."},
}

var demoArticles = []demoArticle{
	{
		title:     "Forty new wells in the northern districts",
		slug:      "forty-new-wells",
		summary:   "This year's drilling programme reached forty villages.",
		body:      "<p>With support from local councils we drilled forty wells this year.</p>",
		category:  "clean-water",
		published: true,
	},
	{
		title:    "Teacher training week",
		slug:     "teacher-training-week",
		summary:  "Sixty teachers joined our summer workshop.",
		body:     "<p>The workshop covered literacy methods and classroom management.</p>",
		category: "education",
	},
}

// SeedDemo creates sample NGO content: a demo editor, one section with two
// categories and articles, a news item, a report, a contact message and the
// default site settings. It is a no-op once the demo section exists.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	if _, err := queries.GetSectionBySlug(ctx, demoSectionSlug); err == nil {
		slog.Info("demo content already exists, skipping")
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking demo section: %w", err)
	}

	slog.Info("seeding demo content")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := queries.WithTx(tx)

	editorID, err := seedDemoEditor(ctx, qtx)
	if err != nil {
		return fmt.Errorf("seeding demo editor: %w", err)
	}
	if err := seedDemoContent(ctx, qtx, editorID); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}
	if err := seedDemoSettings(ctx, qtx); err != nil {
		return fmt.Errorf("seeding demo settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing demo content: %w", err)
	}

	slog.Info("demo content seeded successfully",
		"editor", DemoEditorUsername,
		"password", DemoEditorPassword,
	)
	return nil
}

func seedDemoEditor(ctx context.Context, queries *Queries) (int64, error) {
	if existing, err := queries.GetUserByUsername(ctx, DemoEditorUsername); err == nil {
		return existing.ID, nil
	}

	hash, err := auth.HashPassword(DemoEditorPassword)
	if err != nil {
		return 0, fmt.Errorf("hashing editor password: %w", err)
	}

	perms := model.Permissions{
		"articles":   {"view", "add", "edit"},
		"news":       {"view", "add", "edit"},
		"categories": {"view"},
		"sections":   {"view"},
	}
	now := time.Now().UTC()
	res, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     DemoEditorUsername,
		Email:        DemoEditorEmail,
		PasswordHash: hash,
		Role:         model.RoleEditor,
		Permissions:  perms.String(),
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return 0, fmt.Errorf("creating demo editor: %w", err)
	}
	return res.LastInsertId()
}

func seedDemoContent(ctx context.Context, queries *Queries, authorID int64) error {
	now := time.Now().UTC()
	published := sql.NullTime{Time: now, Valid: true}

	res, err := queries.CreateSection(ctx, CreateSectionParams{
		UserID:      authorID,
		Title:       "Our Work",
		Slug:        demoSectionSlug,
		Description: "Programmes we run with local partners.",
		Status:      model.ContentStatusPublished,
		Position:    1,
		PublishDate: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("creating section: %w", err)
	}
	sectionID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	categoryIDs := make(map[string]int64, len(demoCategories))
	for _, c := range demoCategories {
		res, err := queries.CreateCategory(ctx, CreateCategoryParams{
			UserID:      authorID,
			SectionID:   sectionID,
			Name:        c.name,
			Slug:        c.slug,
			Description: c.description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("creating category %s: %w", c.slug, err)
		}
		if categoryIDs[c.slug], err = res.LastInsertId(); err != nil {
			return err
		}
	}

	for _, a := range demoArticles {
		status, date := model.ContentStatusDraft, sql.NullTime{}
		if a.published {
			status, date = model.ContentStatusPublished, published
		}
		if _, err := queries.CreateArticle(ctx, CreateArticleParams{
			UserID:      authorID,
			SectionID:   sql.NullInt64{Int64: sectionID, Valid: true},
			CategoryID:  sql.NullInt64{Int64: categoryIDs[a.category], Valid: true},
			Title:       a.title,
			Slug:        a.slug,
			Summary:     a.summary,
			Body:        a.body,
			Status:      status,
			PublishDate: date,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return fmt.Errorf("creating article %s: %w", a.slug, err)
		}
	}

	if _, err := queries.CreateNews(ctx, CreateNewsParams{
		UserID:      authorID,
		Title:       "Annual volunteer meetup",
		Slug:        "annual-volunteer-meetup",
		Summary:     "Join us on the first Saturday of June.",
		Body:        "<p>Volunteers from every region are welcome.</p>",
		Status:      model.ContentStatusPublished,
		PublishDate: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return fmt.Errorf("creating news: %w", err)
	}

	if _, err := queries.CreateReport(ctx, CreateReportParams{
		UserID:      authorID,
		Title:       "Annual Report",
		Slug:        "annual-report",
		Summary:     "Finances and outcomes of the past year.",
		Body:        "<p>Full report attached.</p>",
		FileUrl:     "/files/annual-report.pdf",
		Status:      model.ContentStatusPublished,
		PublishDate: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	if _, err := queries.CreateContactMessage(ctx, CreateContactMessageParams{
		Name:      "Amina Okafor",
		Email:     "amina@example.org",
		Subject:   "Volunteering",
		Message:   "How can I help with the water programme?",
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("creating contact message: %w", err)
	}
	return nil
}

// seedDemoSettings writes default settings unless any are already set.
func seedDemoSettings(ctx context.Context, queries *Queries) error {
	existing, err := queries.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("listing settings: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	for name, value := range map[string]string{
		"site_name":     "Clean Water Initiative",
		"contact_email": "info@example.org",
		"tagline":       "Safe water for every village",
	} {
		if err := queries.CreateSetting(ctx, CreateSettingParams{Name: name, Value: value, UpdatedAt: now}); err != nil {
			return fmt.Errorf("creating setting %s: %w", name, err)
		}
	}
	return nil
}
