// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/olegiv/ngocms/internal/logging"
	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/service"
	"github.com/olegiv/ngocms/internal/store"
)

// ActivityLogger records backup operations in the activity log.
type ActivityLogger interface {
	Log(ctx context.Context, e service.ActivityEntry) error
}

// Actor identifies who triggered an operation. A nil UserID marks a
// system action such as a scheduled backup.
type Actor struct {
	UserID *int64
	IP     string
}

// Service creates, lists and restores stored backups.
type Service struct {
	db       *sql.DB
	fs       afero.Fs
	exporter *Exporter
	importer *Importer
	activity ActivityLogger
	logger   *slog.Logger
	onImport []func(context.Context, Type)
	now      func() time.Time
}

// NewService creates a new backup Service storing files on fs.
func NewService(db *sql.DB, fs afero.Fs, activity ActivityLogger, logger *slog.Logger, maxImportBytes int64) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		fs:       fs,
		exporter: NewExporter(db),
		importer: NewImporter(db, maxImportBytes),
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
}

// OnImport registers a callback run after every committed import.
func (s *Service) OnImport(fn func(context.Context, Type)) {
	s.onImport = append(s.onImport, fn)
}

// Create exports a profile, stores it and records the action.
func (s *Service) Create(ctx context.Context, actor Actor, t Type) (Info, error) {
	doc, err := s.exporter.Export(ctx, t)
	if err != nil {
		s.logger.Error("backup export failed", "type", t, "error", err, logging.Recorded())
		s.record(ctx, actor, service.ActivityEntry{
			Action:  fmt.Sprintf("Failed to create %s backup", t),
			Status:  model.ActivityStatusFailure,
			Details: map[string]any{"type": string(t)},
		})
		return Info{}, err
	}

	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		return Info{}, fmt.Errorf("encoding backup: %w", err)
	}

	name := FileName(t, s.now())
	if err := afero.WriteFile(s.fs, name, buf.Bytes(), 0o640); err != nil {
		s.logger.Error("writing backup file failed", "file", name, "error", err)
		return Info{}, fmt.Errorf("writing backup file: %w", err)
	}

	info := Info{Name: name, Size: int64(buf.Len()), ModTime: doc.Metadata.Timestamp, Type: t}
	if st, err := s.fs.Stat(name); err == nil {
		info.Size = st.Size()
		info.ModTime = st.ModTime().UTC()
	}

	s.logger.Info("backup created", "file", name, "type", t, "size", info.Size)
	s.record(ctx, actor, service.ActivityEntry{
		Action:  fmt.Sprintf("Created %s backup", t),
		Details: map[string]any{"file": name, "type": string(t), "size": info.Size},
	})
	return info, nil
}

// List returns the stored backups, newest first.
func (s *Service) List(_ context.Context) ([]Info, error) {
	files, err := listFiles(s.fs)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return files, nil
}

// Open opens a stored backup for reading. The caller closes the file.
func (s *Service) Open(_ context.Context, name string) (afero.File, Info, error) {
	if err := ValidateName(name); err != nil {
		return nil, Info{}, err
	}
	st, err := s.fs.Stat(name)
	if err != nil {
		return nil, Info{}, classifyFileError(err)
	}
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, Info{}, classifyFileError(err)
	}
	return f, Info{Name: name, Size: st.Size(), ModTime: st.ModTime().UTC(), Type: typeFromName(name)}, nil
}

// Delete removes a stored backup.
func (s *Service) Delete(ctx context.Context, actor Actor, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.fs.Stat(name); err != nil {
		return classifyFileError(err)
	}
	if err := s.fs.Remove(name); err != nil {
		return classifyFileError(err)
	}
	s.logger.Info("backup deleted", "file", name)
	s.record(ctx, actor, service.ActivityEntry{
		Action:  "Deleted backup",
		Details: map[string]any{"file": name},
	})
	return nil
}

// Restore imports a stored backup by name. The stored file is kept.
func (s *Service) Restore(ctx context.Context, actor Actor, name string) (*Result, error) {
	f, _, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return s.importFrom(ctx, actor, f, name)
}

// ImportFile imports an uploaded file from the local disk. The file is
// removed afterwards whether or not the import succeeds.
func (s *Service) ImportFile(ctx context.Context, actor Actor, path string) (*Result, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove uploaded backup", "path", path, "error", err)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		err = classifyFileError(err)
		s.logImportFailure(actor, path, err)
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return s.importFrom(ctx, actor, f, path)
}

// ImportReader imports a document from r.
func (s *Service) ImportReader(ctx context.Context, actor Actor, r io.Reader, source string) (*Result, error) {
	return s.importFrom(ctx, actor, r, source)
}

func (s *Service) importFrom(ctx context.Context, actor Actor, r io.Reader, source string) (*Result, error) {
	result, err := s.importer.Import(ctx, r)
	if err != nil {
		s.logImportFailure(actor, source, err)
		return nil, err
	}

	for _, fn := range s.onImport {
		fn(ctx, result.Type)
	}

	s.logger.Info("backup imported", "source", source, "type", result.Type)

	// A full import replaces the users table, so the importing user may be gone.
	actor.UserID = s.existingUser(ctx, actor.UserID)
	s.record(ctx, actor, service.ActivityEntry{
		Action: fmt.Sprintf("Imported %s backup", result.Type),
		Details: map[string]any{
			"source":   source,
			"type":     string(result.Type),
			"inserted": result.Inserted,
		},
	})
	return result, nil
}

// logImportFailure reports a failed import to the process log only. A failed
// import leaves the database exactly as it was, activity_logs included.
func (s *Service) logImportFailure(actor Actor, source string, err error) {
	attrs := []any{"source", source, "error", err, logging.Recorded()}
	if actor.UserID != nil {
		attrs = append(attrs, "user_id", *actor.UserID)
	}
	if actor.IP != "" {
		attrs = append(attrs, "ip", actor.IP)
	}
	s.logger.Warn("backup import failed", attrs...)
}

func (s *Service) existingUser(ctx context.Context, id *int64) *int64 {
	if id == nil {
		return nil
	}
	if _, err := store.New(s.db).GetUserByID(ctx, *id); err != nil {
		return nil
	}
	return id
}

func (s *Service) record(ctx context.Context, actor Actor, e service.ActivityEntry) {
	if s.activity == nil {
		return
	}
	e.UserID = actor.UserID
	e.IPAddress = actor.IP
	e.ActionType = model.ActionTypeBackup
	if err := s.activity.Log(ctx, e); err != nil {
		s.logger.Error("failed to record backup activity", "error", err, logging.Recorded())
	}
}

// Cleanup removes stored backups older than maxAge and returns how many
// were removed. Files that fail to delete are logged and skipped.
func (s *Service) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	files, err := listFiles(s.fs)
	if err != nil {
		return 0, fmt.Errorf("listing backups: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, f := range files {
		if !f.ModTime.Before(cutoff) {
			continue
		}
		if err := s.fs.Remove(f.Name); err != nil {
			s.logger.Warn("failed to delete old backup", "file", f.Name, "error", err)
			continue
		}
		s.logger.Info("deleted old backup", "file", f.Name)
		removed++
	}
	return removed, nil
}
