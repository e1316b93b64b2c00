// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/ngocms/internal/middleware"
	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/service"
)

// maxSettingsBody bounds the PUT /api/settings request body.
const maxSettingsBody = 1 << 20

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All(r.Context())
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		WriteInternalError(w, "Failed to load settings")
		return
	}
	WriteSuccess(w, settings, nil)
}

// PutSettings handles PUT /api/settings. The body replaces the whole map.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSettingsBody)

	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		WriteBadRequest(w, "Request body must be a JSON object of string values", nil)
		return
	}
	if values == nil {
		values = map[string]string{}
	}

	if err := h.settings.Replace(r.Context(), values); err != nil {
		if errors.Is(err, service.ErrInvalidSetting) {
			WriteBadRequest(w, err.Error(), nil)
			return
		}
		slog.Error("failed to save settings", "error", err)
		WriteInternalError(w, "Failed to save settings")
		return
	}

	h.logActivity(r, service.ActivityEntry{
		Action:     "Updated settings",
		ActionType: model.ActionTypeSettings,
		Details:    map[string]any{"count": len(values)},
	})
	WriteSuccess(w, values, nil)
}

// logActivity records a successful request-scoped action.
func (h *Handler) logActivity(r *http.Request, e service.ActivityEntry) {
	if h.activity == nil {
		return
	}
	e.UserID = middleware.GetUserIDPtr(r)
	e.IPAddress = middleware.ClientIP(r)
	if err := h.activity.Log(r.Context(), e); err != nil {
		slog.Error("failed to record activity", "action", e.Action, "error", err)
	}
}
