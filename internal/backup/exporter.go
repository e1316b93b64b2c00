// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Exporter reads a backup profile into a Document.
type Exporter struct {
	db  *sql.DB
	now func() time.Time
}

// NewExporter creates a new Exporter.
func NewExporter(db *sql.DB) *Exporter {
	return &Exporter{db: db, now: time.Now}
}

// Export reads every table of the profile inside a single transaction so
// the snapshot is consistent.
func (e *Exporter) Export(ctx context.Context, t Type) (*Document, error) {
	if _, err := ParseType(string(t)); err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	doc := &Document{
		Metadata: Metadata{
			Timestamp: e.now().UTC(),
			Type:      t,
			Version:   FormatVersion,
		},
		Tables: make(map[string][]Row, len(t.Tables())),
	}

	for _, name := range t.Tables() {
		rows, err := exportTable(ctx, tx, schemaByName[name])
		if err != nil {
			return nil, fmt.Errorf("%w: exporting %s: %w", ErrDatabase, name, err)
		}
		doc.Tables[name] = rows
	}

	return doc, nil
}

func exportTable(ctx context.Context, tx *sql.Tx, td tableDef) ([]Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		quoteList(td.columnNames()), quoteIdent(td.name), quoteIdent("id"))

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []Row{}
	for rows.Next() {
		dest := make([]any, len(td.columns))
		for i, c := range td.columns {
			dest[i] = scanTarget(c.kind)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(Row, len(td.columns))
		for i, c := range td.columns {
			row[c.name] = exportValue(c.kind, dest[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanTarget(kind columnKind) any {
	switch kind {
	case kindInt:
		return new(sql.NullInt64)
	case kindTime:
		return new(sql.NullTime)
	case kindBool:
		return new(sql.NullBool)
	default:
		return new(sql.NullString)
	}
}

func exportValue(kind columnKind, dest any) any {
	switch v := dest.(type) {
	case *sql.NullInt64:
		if !v.Valid {
			return nil
		}
		return v.Int64
	case *sql.NullTime:
		if !v.Valid {
			return nil
		}
		return v.Time.UTC().Format(time.RFC3339Nano)
	case *sql.NullBool:
		if !v.Valid {
			return nil
		}
		return v.Bool
	case *sql.NullString:
		if !v.Valid {
			return nil
		}
		if kind == kindJSON && json.Valid([]byte(v.String)) {
			return json.RawMessage(v.String)
		}
		return v.String
	}
	return nil
}

// quoteIdent quotes an identifier with backticks, which both SQLite and
// MySQL accept. Identifiers only ever come from the static schema.
func quoteIdent(name string) string {
	return "`" + name + "`"
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
