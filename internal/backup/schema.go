// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backup exports application tables to a JSON document and restores
// them in a single transaction.
//
// A document is one JSON object: a "metadata" block plus one array of row
// objects per table of the backup type's profile.
//
//	{"metadata":{"timestamp":"...","type":"sections","version":"1.0"},
//	 "sections":[...],"categories":[...],"articles":[...]}
package backup

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FormatVersion is written to metadata.version.
const FormatVersion = "1.0"

// supportedMajor is the highest metadata.version major number Import accepts.
const supportedMajor = 1

// Type selects which tables a backup covers.
type Type string

// Backup types.
const (
	TypeFull     Type = "full"
	TypeTables   Type = "tables"
	TypeSections Type = "sections"
)

// Types lists every backup type.
var Types = []Type{TypeFull, TypeTables, TypeSections}

// ParseType validates a backup type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Tables returns the profile's tables in insert order (parents first).
func (t Type) Tables() []string {
	return profiles[t]
}

// deleteOrder returns the profile's tables children first.
func (t Type) deleteOrder() []string {
	out := slices.Clone(profiles[t])
	slices.Reverse(out)
	return out
}

type columnKind int

const (
	kindInt columnKind = iota
	kindText
	kindTime
	kindBool
	kindJSON
)

type column struct {
	name string
	kind columnKind
}

type tableDef struct {
	name    string
	columns []column
}

func (td tableDef) column(name string) (column, bool) {
	for _, c := range td.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func (td tableDef) columnNames() []string {
	names := make([]string, len(td.columns))
	for i, c := range td.columns {
		names[i] = c.name
	}
	return names
}

func contentColumns(extra ...column) []column {
	cols := []column{
		{"id", kindInt},
		{"user_id", kindInt},
		{"title", kindText},
		{"slug", kindText},
		{"summary", kindText},
		{"body", kindText},
	}
	cols = append(cols, extra...)
	return append(cols,
		column{"status", kindText},
		column{"publish_date", kindTime},
		column{"created_at", kindTime},
		column{"updated_at", kindTime},
	)
}

// schema lists every backed-up table in insert order: a table appears after
// every table it references.
var schema = []tableDef{
	{"users", []column{
		{"id", kindInt},
		{"username", kindText},
		{"email", kindText},
		{"password_hash", kindText},
		{"role", kindText},
		{"permissions", kindJSON},
		{"status", kindText},
		{"created_at", kindTime},
		{"updated_at", kindTime},
		{"last_login_at", kindTime},
	}},
	{"settings", []column{
		{"id", kindInt},
		{"name", kindText},
		{"value", kindText},
		{"updated_at", kindTime},
	}},
	{"contact_messages", []column{
		{"id", kindInt},
		{"name", kindText},
		{"email", kindText},
		{"subject", kindText},
		{"message", kindText},
		{"is_read", kindBool},
		{"created_at", kindTime},
	}},
	{"sections", []column{
		{"id", kindInt},
		{"user_id", kindInt},
		{"title", kindText},
		{"slug", kindText},
		{"description", kindText},
		{"status", kindText},
		{"position", kindInt},
		{"publish_date", kindTime},
		{"created_at", kindTime},
		{"updated_at", kindTime},
	}},
	{"categories", []column{
		{"id", kindInt},
		{"user_id", kindInt},
		{"section_id", kindInt},
		{"name", kindText},
		{"slug", kindText},
		{"description", kindText},
		{"created_at", kindTime},
		{"updated_at", kindTime},
	}},
	{"campaigns", contentColumns()},
	{"stories", contentColumns()},
	{"statements", contentColumns()},
	{"reports", contentColumns(column{"file_url", kindText})},
	{"news", contentColumns()},
	{"articles", []column{
		{"id", kindInt},
		{"user_id", kindInt},
		{"section_id", kindInt},
		{"category_id", kindInt},
		{"title", kindText},
		{"slug", kindText},
		{"summary", kindText},
		{"body", kindText},
		{"status", kindText},
		{"publish_date", kindTime},
		{"created_at", kindTime},
		{"updated_at", kindTime},
	}},
	{"activity_logs", []column{
		{"id", kindInt},
		{"user_id", kindInt},
		{"action", kindText},
		{"action_type", kindText},
		{"details", kindText},
		{"status", kindText},
		{"ip_address", kindText},
		{"created_at", kindTime},
		{"updated_at", kindTime},
	}},
}

var schemaByName = func() map[string]tableDef {
	m := make(map[string]tableDef, len(schema))
	for _, td := range schema {
		m[td.name] = td
	}
	return m
}()

// profiles maps each type to its tables in insert order.
var profiles = map[Type][]string{
	TypeFull: tableNames(func(string) bool { return true }),
	TypeTables: tableNames(func(name string) bool {
		return slices.Contains([]string{
			"sections", "categories", "articles", "news",
			"reports", "statements", "stories", "campaigns",
		}, name)
	}),
	TypeSections: tableNames(func(name string) bool {
		return name == "sections" || name == "categories" || name == "articles"
	}),
}

func tableNames(keep func(string) bool) []string {
	var out []string
	for _, td := range schema {
		if keep(td.name) {
			out = append(out, td.name)
		}
	}
	return out
}

// Metadata is the document's "metadata" block.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Version   string    `json:"version"`
}

// Row is one table row keyed by column name.
type Row map[string]any

// Document is an in-memory backup.
type Document struct {
	Metadata Metadata
	Tables   map[string][]Row
}

// versionSupported reports whether a metadata.version can be imported.
// An empty version is treated as 1.0.
func versionSupported(v string) bool {
	if v == "" {
		return true
	}
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	return err == nil && n >= 1 && n <= supportedMajor
}
