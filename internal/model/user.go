// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain constants and value types shared across the
// application: user roles and statuses, the per-user permission map,
// activity log vocabulary and content lifecycle values.
package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// User roles.
const (
	RoleEditor      = "editor"
	RoleAdmin       = "admin"
	RoleSystemAdmin = "system_admin"
)

// User statuses.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// ValidRoles lists every assignable role.
var ValidRoles = []string{RoleEditor, RoleAdmin, RoleSystemAdmin}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles, role)
}

// IsAdminRole returns true for roles that bypass per-entity permissions.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSystemAdmin
}

// Permissions maps a plural entity name (e.g. "articles") to the actions a
// user may perform on it (e.g. ["view", "edit"]).
// Stored as a JSON object in users.permissions.
type Permissions map[string][]string

// ParsePermissions decodes the JSON stored in users.permissions.
// An empty string decodes to an empty map.
func ParsePermissions(raw string) (Permissions, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Permissions{}, nil
	}

	var p Permissions
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parsing permissions: %w", err)
	}
	if p == nil {
		p = Permissions{}
	}
	return p, nil
}

// Has reports whether actions for entity include action.
func (p Permissions) Has(entity, action string) bool {
	return slices.Contains(p[entity], action)
}

// String encodes the permissions as JSON for storage.
func (p Permissions) String() string {
	if len(p) == 0 {
		return "{}"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}
