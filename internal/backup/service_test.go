// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/olegiv/ngocms/internal/logging"
	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/service"
	"github.com/olegiv/ngocms/internal/store"
	"github.com/olegiv/ngocms/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *sql.DB, afero.Fs) {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	fs := afero.NewMemMapFs()
	svc := NewService(db, fs, service.NewActivityService(db), testutil.TestLoggerSilent(), 0)
	return svc, db, fs
}

func activityRows(t *testing.T, db *sql.DB) []store.ActivityLog {
	t.Helper()
	page, err := service.NewActivityService(db).List(context.Background(), service.ActivityFilter{PerPage: 100})
	require.NoError(t, err)
	return page.Entries
}

func writeTemp(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestService_CreateListOpenDelete(t *testing.T) {
	svc, db, fs := newTestService(t)
	ctx := context.Background()
	f := seedContent(t, db)
	actor := Actor{UserID: &f.userID, IP: "203.0.113.7"}

	info, err := svc.Create(ctx, actor, TypeSections)
	require.NoError(t, err)
	assert.Equal(t, TypeSections, info.Type)
	assert.Positive(t, info.Size)
	assert.NoError(t, ValidateName(info.Name))

	data, err := afero.ReadFile(fs, info.Name)
	require.NoError(t, err)
	assert.Equal(t, "sections", gjson.GetBytes(data, "metadata.type").String())
	assert.Len(t, gjson.GetBytes(data, "articles").Array(), 1)

	entries := activityRows(t, db)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionTypeBackup, entries[0].ActionType)
	assert.Equal(t, model.ActivityStatusSuccess, entries[0].Status)
	assert.Equal(t, f.userID, entries[0].UserID.Int64)
	assert.Equal(t, "203.0.113.7", entries[0].IpAddress)
	assert.Equal(t, info.Name, gjson.Get(entries[0].Details, "file").String())

	files, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, info.Name, files[0].Name)

	rc, opened, err := svc.Open(ctx, info.Name)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, body)
	assert.Equal(t, info.Size, opened.Size)

	require.NoError(t, svc.Delete(ctx, actor, info.Name))
	files, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.ErrorIs(t, svc.Delete(ctx, actor, info.Name), ErrFileMissing)
	assert.ErrorIs(t, svc.Delete(ctx, actor, "../etc/passwd"), ErrInvalidName)
}

func TestService_OpenErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Open(ctx, "backup-full-missing.json")
	assert.ErrorIs(t, err, ErrFileMissing)

	_, _, err = svc.Open(ctx, "../../secret.json")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestService_RestoreKeepsStoredFile(t *testing.T) {
	svc, db, fs := newTestService(t)
	ctx := context.Background()
	seedContent(t, db)

	info, err := svc.Create(ctx, Actor{}, TypeSections)
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM articles")
	require.NoError(t, err)

	var invalidated []Type
	svc.OnImport(func(_ context.Context, t Type) { invalidated = append(invalidated, t) })

	result, err := svc.Restore(ctx, Actor{}, info.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted["articles"])
	assert.Equal(t, 1, testutil.CountRows(t, db, "articles"))
	assert.Equal(t, []Type{TypeSections}, invalidated)

	exists, err := afero.Exists(fs, info.Name)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestService_ImportFileRemovesUpload(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	f := seedContent(t, db)

	t.Run("success", func(t *testing.T) {
		path := writeTemp(t, `{"metadata":{"type":"sections","version":"1.0"}}`)

		_, err := svc.ImportFile(ctx, Actor{UserID: &f.userID}, path)
		require.NoError(t, err)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "upload should be removed after success")
		assert.Zero(t, testutil.CountRows(t, db, "sections"))
	})

	t.Run("failure", func(t *testing.T) {
		path := writeTemp(t, "not json at all")

		_, err := svc.ImportFile(ctx, Actor{UserID: &f.userID}, path)
		require.ErrorIs(t, err, ErrInvalidJSON)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "upload should be removed after failure")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := svc.ImportFile(ctx, Actor{}, filepath.Join(t.TempDir(), "gone.json"))
		assert.ErrorIs(t, err, ErrFileMissing)
		assert.Equal(t, "Backup file not found", Message(err))
	})

	// Only the successful import is recorded.
	entries := activityRows(t, db)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActivityStatusSuccess, entries[0].Status)
	assert.Equal(t, "Imported sections backup", entries[0].Action)
}

func TestService_FailedImportLeavesDatabaseUnchanged(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", "definitely not json", ErrInvalidJSON},
		{"missing type", `{"metadata":{}}`, ErrMissingType},
		{"unknown column", `{"metadata":{"type":"sections"},"sections":[{"id":1,"user_id":1,"title":"x","slug":"x","bogus":1}]}`, ErrInvalidDocument},
		{"duplicate slug", `{"metadata":{"type":"sections","version":"1.0"},"sections":[` +
			`{"id":10,"user_id":$USER,"title":"A","slug":"dup"},{"id":11,"user_id":$USER,"title":"B","slug":"dup"}]}`, ErrDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := testutil.TestDB(t)
			defer cleanup()
			f := seedContent(t, db)

			// Mirror warnings into activity_logs the way the server does.
			logger := slog.New(logging.NewActivityLogHandler(slog.NewTextHandler(io.Discard, nil), db))
			svc := NewService(db, afero.NewMemMapFs(), service.NewActivityService(db), logger, 0)

			activityBefore := testutil.CountRows(t, db, "activity_logs")

			_, err := svc.ImportFile(context.Background(), Actor{UserID: &f.userID, IP: "203.0.113.9"}, writeTemp(t, strings.ReplaceAll(tt.data, "$USER", itoa(f.userID))))
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, activityBefore, testutil.CountRows(t, db, "activity_logs"))
			assert.Equal(t, 1, testutil.CountRows(t, db, "sections"))
			assert.Equal(t, 1, testutil.CountRows(t, db, "articles"))
		})
	}
}

func TestService_FullImportDropsVanishedUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	// An empty full backup removes every user, including the importer.
	empty, err := NewExporter(db).Export(ctx, TypeFull)
	require.NoError(t, err)
	data, err := empty.MarshalJSON()
	require.NoError(t, err)

	admin := testutil.CreateUser(t, db, "admin", model.RoleAdmin, nil)

	_, err = svc.ImportFile(ctx, Actor{UserID: &admin.ID, IP: "198.51.100.4"}, writeTemp(t, string(data)))
	require.NoError(t, err)

	assert.Zero(t, testutil.CountRows(t, db, "users"))
	entries := activityRows(t, db)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].UserID.Valid)
	assert.Equal(t, "198.51.100.4", entries[0].IpAddress)
	assert.Equal(t, "Imported full backup", entries[0].Action)
}

func TestService_Cleanup(t *testing.T) {
	svc, _, fs := newTestService(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	write := func(name string, age time.Duration) {
		require.NoError(t, afero.WriteFile(fs, name, []byte("{}"), 0o640))
		require.NoError(t, fs.Chtimes(name, now.Add(-age), now.Add(-age)))
	}
	write("backup-full-old.json", 40*24*time.Hour)
	write("backup-full-new.json", 2*24*time.Hour)
	write("notes.json", 90*24*time.Hour)

	removed, err := svc.Cleanup(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	for name, want := range map[string]bool{
		"backup-full-old.json": false,
		"backup-full-new.json": true,
		"notes.json":           true,
	} {
		exists, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.Equal(t, want, exists, name)
	}
}

func TestService_ScheduledJob(t *testing.T) {
	svc, db, fs := newTestService(t)
	seedContent(t, db)

	old := "backup-full-old.json"
	require.NoError(t, afero.WriteFile(fs, old, []byte("{}"), 0o640))
	past := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, fs.Chtimes(old, past, past))

	job := svc.ScheduledJob("0 3 * * *", TypeFull, 30*24*time.Hour)
	assert.Equal(t, ScheduledJobName, job.Name)
	require.NoError(t, job.Run(context.Background()))

	files, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, TypeFull, files[0].Type)

	entries := activityRows(t, db)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].UserID.Valid, "scheduled backups have no user")
}
