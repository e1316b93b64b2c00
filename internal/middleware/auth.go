// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/ngocms/internal/access"
	"github.com/olegiv/ngocms/internal/auth"
	"github.com/olegiv/ngocms/internal/logging"
	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/service"
	"github.com/olegiv/ngocms/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the authenticated store.User.
const ContextKeyUser ContextKey = "user"

// ActivityRecorder appends entries to the activity log.
type ActivityRecorder interface {
	Log(ctx context.Context, e service.ActivityEntry) error
}

// BearerAuth creates middleware that requires a valid Bearer token for an
// active user and loads that user into the request context.
func BearerAuth(tokens *auth.TokenManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Missing or malformed Authorization header", nil)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "User not found", nil)
					return
				}
				slog.Error("failed to load user", "user_id", userID, "error", err)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load user", nil)
				return
			}
			if user.Status != model.UserStatusActive {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Account is inactive", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUser returns a copy of ctx carrying user. Used by tests and the CLI.
func WithUser(ctx context.Context, user store.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserIDPtr returns a pointer to the current user's ID from context, or nil if not found.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// roleLevel returns a numeric level for role hierarchy.
// Higher level = more privileges. Unknown roles have level 0.
func roleLevel(role string) int {
	switch role {
	case model.RoleSystemAdmin:
		return 3
	case model.RoleAdmin:
		return 2
	case model.RoleEditor:
		return 1
	default:
		return 0
	}
}

// RequireRole creates middleware that requires a minimum user role.
// Roles are hierarchical: system_admin > admin > editor.
func RequireRole(minRole string, activity ActivityRecorder) func(http.Handler) http.Handler {
	minLevel := roleLevel(minRole)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}

			if roleLevel(user.Role) < minLevel {
				deny(w, r, user, activity, "required_role", minRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission creates middleware that runs the permission evaluator
// for the current user. Admin roles always pass.
func RequirePermission(perm access.Permission, activity ActivityRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}

			if !access.Allowed(access.SubjectOf(*user), perm) {
				deny(w, r, user, activity, "permission", perm.String())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// deny answers 403 with the generic message and records the refusal in
// the application log and the activity log.
func deny(w http.ResponseWriter, r *http.Request, user *store.User, activity ActivityRecorder, key, required string) {
	ip := ClientIP(r)
	slog.Warn("access denied",
		"status", http.StatusForbidden,
		"method", r.Method,
		"path", r.URL.Path,
		"user_id", user.ID,
		"user_role", user.Role,
		key, required,
		"ip", ip,
		logging.Recorded(),
	)

	if activity != nil {
		userID := user.ID
		err := activity.Log(r.Context(), service.ActivityEntry{
			UserID:     &userID,
			Action:     "Access denied",
			ActionType: model.ActionTypeAuth,
			Status:     model.ActivityStatusFailure,
			IPAddress:  ip,
			Details: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				key:      required,
			},
		})
		if err != nil {
			slog.Error("failed to record access denial", "error", err)
		}
	}

	WriteAPIError(w, http.StatusForbidden, "forbidden", "Access denied", nil)
}
