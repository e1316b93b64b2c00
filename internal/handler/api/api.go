// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers for the CMS.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/ngocms/internal/backup"
	"github.com/olegiv/ngocms/internal/middleware"
	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/service"
	"github.com/olegiv/ngocms/internal/store"
	"github.com/olegiv/ngocms/internal/version"
)

// Deps are the services the API handlers depend on.
type Deps struct {
	DB             *sql.DB
	Settings       *service.SettingsService
	Activity       *service.ActivityService
	Backups        *backup.Service
	Version        version.Info
	MaxUploadBytes int64
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db             *sql.DB
	queries        *store.Queries
	settings       *service.SettingsService
	activity       *service.ActivityService
	backups        *backup.Service
	version        version.Info
	maxUploadBytes int64
	startTime      time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = backup.DefaultMaxImportBytes
	}
	return &Handler{
		db:             deps.DB,
		queries:        store.New(deps.DB),
		settings:       deps.Settings,
		activity:       deps.Activity,
		backups:        deps.Backups,
		version:        deps.Version,
		maxUploadBytes: maxUpload,
		startTime:      time.Now(),
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	Uptime    string `json:"uptime"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	v := h.version.Version
	if v == "" {
		v = "dev"
	}
	WriteSuccess(w, StatusResponse{
		Status:    "ok",
		Version:   v,
		GitCommit: h.version.GitCommit,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}, nil)
}

// MeResponse describes the authenticated user. The password hash is never
// serialized.
type MeResponse struct {
	ID          int64               `json:"id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	Permissions map[string][]string `json:"permissions"`
	Status      string              `json:"status"`
	LastLoginAt *time.Time          `json:"last_login_at,omitempty"`
}

// Me returns the user behind the Bearer token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	perms, _ := model.ParsePermissions(user.Permissions)
	resp := MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: perms,
		Status:      user.Status,
	}
	if resp.Permissions == nil {
		resp.Permissions = map[string][]string{}
	}
	if user.LastLoginAt.Valid {
		t := user.LastLoginAt.Time
		resp.LastLoginAt = &t
	}
	WriteSuccess(w, resp, nil)
}

// pageMeta builds pagination metadata.
func pageMeta(total int64, page, perPage int) *Meta {
	pages := 0
	if perPage > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &Meta{Total: total, Page: page, PerPage: perPage, Pages: pages}
}

// queryInt parses an optional positive integer query parameter. ok is false
// when the value is present but invalid.
func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// actor identifies the caller for the activity log.
func actor(r *http.Request) backup.Actor {
	return backup.Actor{
		UserID: middleware.GetUserIDPtr(r),
		IP:     middleware.ClientIP(r),
	}
}
