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

	"github.com/google/uuid"

	"github.com/olegiv/ngocms/internal/auth"
	"github.com/olegiv/ngocms/internal/model"
)

// AdminSeed holds the credentials of the initial system administrator.
type AdminSeed struct {
	Username string
	Email    string
	Password string // generated and logged once when empty
}

// Seed creates the initial system administrator when the users table is
// empty. It returns the id of the created user, or 0 when nothing was done.
//
// When users already exist and a password is configured, the existing admin
// account's hash is upgraded to argon2id if the password matches it. This
// covers bcrypt hashes restored from older backups.
func Seed(ctx context.Context, db *sql.DB, admin AdminSeed) (int64, error) {
	queries := New(db)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		slog.Debug("users exist, skipping admin seed", "count", count)
		if admin.Username != "" && admin.Password != "" {
			if err := upgradeAdminHash(ctx, queries, admin); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	if admin.Username == "" || admin.Email == "" {
		return 0, errors.New("admin username and email are required")
	}

	password := admin.Password
	generated := password == ""
	if generated {
		password = uuid.NewString()
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	res, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: passwordHash,
		Role:         model.RoleSystemAdmin,
		Permissions:  "{}",
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return 0, fmt.Errorf("creating admin user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading admin id: %w", err)
	}

	if generated {
		slog.Warn("created system admin with a generated password; set ADMIN_PASSWORD to choose one",
			"id", id,
			"username", admin.Username,
			"password", password,
		)
	} else {
		slog.Info("created system admin", "id", id, "username", admin.Username)
	}
	return id, nil
}

// upgradeAdminHash rehashes the configured admin's password when the stored
// hash verifies but uses bcrypt or outdated argon2 parameters. A password
// that does not match is never written.
func upgradeAdminHash(ctx context.Context, queries *Queries, admin AdminSeed) error {
	user, err := queries.GetUserByUsername(ctx, admin.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading admin user: %w", err)
	}

	if !auth.NeedsRehash(user.PasswordHash) {
		return nil
	}

	ok, err := auth.CheckPassword(admin.Password, user.PasswordHash)
	if err != nil {
		slog.Warn("stored admin password hash is unreadable", "username", user.Username, "error", err)
		return nil
	}
	if !ok {
		slog.Warn("ADMIN_PASSWORD does not match the stored admin password; hash left unchanged",
			"username", user.Username)
		return nil
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := queries.UpdateUserPassword(ctx, UpdateUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
		ID:           user.ID,
	}); err != nil {
		return fmt.Errorf("updating admin password hash: %w", err)
	}

	slog.Info("upgraded admin password hash", "username", user.Username, "bcrypt", auth.IsBcryptHash(user.PasswordHash))
	return nil
}
