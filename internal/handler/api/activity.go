// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/olegiv/ngocms/internal/service"
	"github.com/olegiv/ngocms/internal/store"
	"github.com/olegiv/ngocms/internal/util"
)

// ActivityLogResponse is one activity log entry as served by the API.
type ActivityLogResponse struct {
	ID         int64           `json:"id"`
	UserID     *int64          `json:"user_id"`
	Action     string          `json:"action"`
	ActionType string          `json:"action_type"`
	Details    json.RawMessage `json:"details"`
	Status     string          `json:"status"`
	IPAddress  string          `json:"ip_address"`
	CreatedAt  time.Time       `json:"created_at"`
}

func activityLogResponse(l store.ActivityLog, _ int) ActivityLogResponse {
	resp := ActivityLogResponse{
		ID:         l.ID,
		UserID:     util.PtrFromNullInt64(l.UserID),
		Action:     l.Action,
		ActionType: l.ActionType,
		Details:    json.RawMessage("{}"),
		Status:     l.Status,
		IPAddress:  l.IpAddress,
		CreatedAt:  l.CreatedAt,
	}
	if json.Valid([]byte(l.Details)) {
		resp.Details = json.RawMessage(l.Details)
	}
	return resp
}

// ListActivityLogs handles GET /api/activity-logs.
func (h *Handler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page")
	if !ok {
		WriteBadRequest(w, "Invalid page", nil)
		return
	}
	perPage, ok := queryInt(r, "per_page")
	if !ok {
		WriteBadRequest(w, "Invalid per_page", nil)
		return
	}

	filter := service.ActivityFilter{
		ActionType: r.URL.Query().Get("action_type"),
		Page:       page,
		PerPage:    perPage,
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			WriteBadRequest(w, "Invalid user_id", nil)
			return
		}
		filter.UserID = &id
	}

	result, err := h.activity.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list activity logs", "error", err)
		WriteInternalError(w, "Failed to list activity logs")
		return
	}

	WriteSuccess(w, lo.Map(result.Entries, activityLogResponse),
		pageMeta(result.Total, result.Page, result.PerPage))
}
