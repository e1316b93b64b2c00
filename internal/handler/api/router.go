// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ngocms/internal/access"
	"github.com/olegiv/ngocms/internal/auth"
	"github.com/olegiv/ngocms/internal/handler"
	"github.com/olegiv/ngocms/internal/middleware"
	"github.com/olegiv/ngocms/internal/model"
)

// RouterConfig carries the collaborators the API routes need besides the
// handler itself.
type RouterConfig struct {
	Tokens        *auth.TokenManager
	Health        *handler.HealthHandler
	BackupLimiter *middleware.IPRateLimiter
}

// Routes returns the /api sub-router.
func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	requireAdmin := middleware.RequireRole(model.RoleAdmin, h.activity)
	editSettings := access.MustParsePermission("edit_settings")
	viewActivity := access.MustParsePermission("view_activity_logs")

	// Public
	r.Get("/status", h.Status)
	r.Get("/health", cfg.Health.Health)
	r.Get("/settings", h.GetSettings)

	// Bearer token required
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.Tokens, h.db))

		r.Get("/me", h.Me)
		r.With(middleware.RequirePermission(editSettings, h.activity)).Put("/settings", h.PutSettings)
		r.With(middleware.RequirePermission(viewActivity, h.activity)).Get("/activity-logs", h.ListActivityLogs)
		r.With(requireAdmin).Get("/health/details", cfg.Health.Details)

		r.Route("/backups", func(r chi.Router) {
			r.Use(requireAdmin)
			if cfg.BackupLimiter != nil {
				r.Use(cfg.BackupLimiter.Middleware())
			}

			r.Get("/", h.ListBackups)
			r.Post("/", h.CreateBackup)
			r.Post("/import", h.ImportBackup)
			r.Get("/{name}", h.DownloadBackup)
			r.Delete("/{name}", h.DeleteBackup)
			r.Post("/{name}/restore", h.RestoreBackup)
		})
	})

	return r
}
