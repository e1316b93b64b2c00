// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// DefaultMaxImportBytes bounds the size of a document read by Import.
const DefaultMaxImportBytes int64 = 100 << 20

// Result summarizes a completed import.
type Result struct {
	Type     Type             `json:"type"`
	Inserted map[string]int   `json:"inserted"`
	Deleted  map[string]int64 `json:"deleted"`
}

// Importer replaces the tables of a backup profile with a document's rows.
type Importer struct {
	db       *sql.DB
	maxBytes int64
}

// NewImporter creates a new Importer. A non-positive maxBytes selects
// DefaultMaxImportBytes.
func NewImporter(db *sql.DB, maxBytes int64) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImportBytes
	}
	return &Importer{db: db, maxBytes: maxBytes}
}

// Import reads, validates and restores a document.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	data, err := readLimited(r, i.maxBytes)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return i.Restore(ctx, doc)
}

type insertStmt struct {
	table string
	query string
	args  []any
}

// Restore replaces the profile's tables in one transaction: every table is
// emptied children first, then the document's rows are inserted parents
// first. Any failure rolls the whole import back.
func (i *Importer) Restore(ctx context.Context, doc *Document) (*Result, error) {
	t, err := ParseType(string(doc.Metadata.Type))
	if err != nil {
		return nil, err
	}
	inserts, err := planInserts(t, doc)
	if err != nil {
		return nil, err
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	result := &Result{
		Type:     t,
		Inserted: make(map[string]int, len(t.Tables())),
		Deleted:  make(map[string]int64, len(t.Tables())),
	}

	for _, name := range t.deleteOrder() {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(name))
		if err != nil {
			return nil, fmt.Errorf("%w: clearing %s: %w", ErrDatabase, name, err)
		}
		n, _ := res.RowsAffected()
		result.Deleted[name] = n
	}

	for _, name := range t.Tables() {
		result.Inserted[name] = 0
	}
	for _, stmt := range inserts {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return nil, fmt.Errorf("%w: restoring %s: %w", ErrDatabase, stmt.table, err)
		}
		result.Inserted[stmt.table]++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	return result, nil
}

// planInserts validates every row and builds the insert statements before
// any transaction is opened. Only the columns present in a row are written,
// so missing columns take their defaults.
func planInserts(t Type, doc *Document) ([]insertStmt, error) {
	inProfile := make(map[string]bool, len(t.Tables()))
	for _, name := range t.Tables() {
		inProfile[name] = true
	}
	for name := range doc.Tables {
		if !inProfile[name] {
			return nil, fmt.Errorf("%w: table %q is not part of a %s backup", ErrInvalidDocument, name, t)
		}
	}

	var stmts []insertStmt
	for _, name := range t.Tables() {
		td := schemaByName[name]
		for idx, raw := range doc.Tables[name] {
			row, err := convertRow(td, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidDocument, name, idx, err)
			}
			if len(row) == 0 {
				return nil, fmt.Errorf("%w: %s[%d] is empty", ErrInvalidDocument, name, idx)
			}

			cols := make([]string, 0, len(row))
			args := make([]any, 0, len(row))
			for _, c := range td.columns {
				if v, ok := row[c.name]; ok {
					cols = append(cols, c.name)
					args = append(args, v)
				}
			}
			query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				quoteIdent(name), quoteList(cols),
				strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
			stmts = append(stmts, insertStmt{table: name, query: query, args: args})
		}
	}
	return stmts, nil
}

// readLimited reads at most limit bytes and fails with ErrTooLarge beyond
// that. File system errors are mapped to ErrFileMissing and ErrPermission.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, classifyFileError(err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func classifyFileError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrFileMissing, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	default:
		return err
	}
}
