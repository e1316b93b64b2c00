// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package access decides whether a user may perform an action on an entity.
//
// Admins and system admins are always allowed. Every other user is allowed
// only when their permission map lists the action for the entity:
//
//	{"articles": ["view", "edit"]}  allows edit_articles, denies delete_articles
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/store"
)

// Action is an operation a user performs on an entity.
type Action string

// Actions.
const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Actions lists every known action.
var Actions = []Action{ActionView, ActionAdd, ActionEdit, ActionDelete}

// Entity is a permission target, named by its plural form as stored in the
// permission map.
type Entity string

// Entities.
const (
	EntityArticles        Entity = "articles"
	EntityNews            Entity = "news"
	EntityReports         Entity = "reports"
	EntitySections        Entity = "sections"
	EntityCategories      Entity = "categories"
	EntityStatements      Entity = "statements"
	EntityStories         Entity = "stories"
	EntityCampaigns       Entity = "campaigns"
	EntityUsers           Entity = "users"
	EntitySettings        Entity = "settings"
	EntityBackups         Entity = "backups"
	EntityActivityLogs    Entity = "activity_logs"
	EntityContactMessages Entity = "contact_messages"
)

// entitySingular maps each entity to its singular spelling. Both forms are
// accepted by ParsePermission.
var entitySingular = map[Entity]string{
	EntityArticles:        "article",
	EntityNews:            "news",
	EntityReports:         "report",
	EntitySections:        "section",
	EntityCategories:      "category",
	EntityStatements:      "statement",
	EntityStories:         "story",
	EntityCampaigns:       "campaign",
	EntityUsers:           "user",
	EntitySettings:        "setting",
	EntityBackups:         "backup",
	EntityActivityLogs:    "activity_log",
	EntityContactMessages: "contact_message",
}

// entityByName resolves singular and plural spellings to an Entity.
var entityByName = func() map[string]Entity {
	m := make(map[string]Entity, 2*len(entitySingular))
	for plural, singular := range entitySingular {
		m[string(plural)] = plural
		m[singular] = plural
	}
	return m
}()

// Errors returned by ParsePermission.
var (
	ErrMalformedPermission = errors.New("malformed permission")
	ErrUnknownAction       = errors.New("unknown action")
	ErrUnknownEntity       = errors.New("unknown entity")
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionAdd, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// Valid reports whether e is a known entity.
func (e Entity) Valid() bool {
	_, ok := entitySingular[e]
	return ok
}

// LookupEntity resolves a singular or plural entity name.
func LookupEntity(name string) (Entity, bool) {
	e, ok := entityByName[strings.ToLower(name)]
	return e, ok
}

// Permission is a validated (action, entity) pair.
type Permission struct {
	Action Action
	Entity Entity
}

// String renders the permission in its "<action>_<entity>" form.
func (p Permission) String() string {
	return string(p.Action) + "_" + string(p.Entity)
}

// ParsePermission parses "<action>_<entity>". The string is split on the
// first underscore only, so entities containing underscores
// ("view_activity_logs") parse as expected. The entity may be singular or
// plural.
func ParsePermission(s string) (Permission, error) {
	action, entity, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok || action == "" || entity == "" {
		return Permission{}, fmt.Errorf("%w: %q", ErrMalformedPermission, s)
	}

	a := Action(strings.ToLower(action))
	if !a.Valid() {
		return Permission{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	e, found := LookupEntity(entity)
	if !found {
		return Permission{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}

	return Permission{Action: a, Entity: e}, nil
}

// MustParsePermission is like ParsePermission but panics on error.
// Intended for route tables built at startup.
func MustParsePermission(s string) Permission {
	p, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Subject is the part of a user record the evaluator looks at.
type Subject struct {
	Role        string
	Permissions model.Permissions
}

// SubjectOf builds a Subject from a stored user. A permission column that
// does not decode yields an empty map, which grants nothing.
func SubjectOf(u store.User) Subject {
	perms, err := model.ParsePermissions(u.Permissions)
	if err != nil {
		perms = model.Permissions{}
	}
	return Subject{Role: u.Role, Permissions: perms}
}

// Allowed reports whether the subject may exercise p.
func Allowed(s Subject, p Permission) bool {
	if model.IsAdminRole(s.Role) {
		return true
	}
	return s.Permissions.Has(string(p.Entity), string(p.Action))
}

// HasPermission evaluates a permission string such as "edit_articles".
// Admins are allowed before the string is parsed; for everyone else an
// unparseable string is denied.
func HasPermission(s Subject, permission string) bool {
	if model.IsAdminRole(s.Role) {
		return true
	}
	p, err := ParsePermission(permission)
	if err != nil {
		return false
	}
	return Allowed(s, p)
}
