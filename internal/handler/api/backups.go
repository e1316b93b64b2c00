// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ngocms/internal/backup"
	"github.com/olegiv/ngocms/internal/logging"
	"github.com/olegiv/ngocms/internal/util"
)

// multipartOverhead is the allowance for multipart headers on top of the
// backup size limit.
const multipartOverhead = 1 << 20

// CreateBackupRequest is the body of POST /api/backups.
type CreateBackupRequest struct {
	Type string `json:"type"`
}

// ImportResponse summarizes a committed import.
type ImportResponse struct {
	Type     backup.Type      `json:"type"`
	Inserted map[string]int   `json:"inserted"`
	Deleted  map[string]int64 `json:"deleted"`
}

func importResponse(res *backup.Result) ImportResponse {
	return ImportResponse{Type: res.Type, Inserted: res.Inserted, Deleted: res.Deleted}
}

// ListBackups handles GET /api/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	files, err := h.backups.List(r.Context())
	if err != nil {
		slog.Error("failed to list backups", "error", err)
		WriteInternalError(w, "Failed to list backups")
		return
	}
	if files == nil {
		files = []backup.Info{}
	}
	WriteSuccess(w, files, &Meta{Total: int64(len(files))})
}

// CreateBackup handles POST /api/backups.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	t, err := backup.ParseType(req.Type)
	if err != nil {
		WriteValidationError(w, map[string]string{"type": "Must be one of " + typeList()})
		return
	}

	info, err := h.backups.Create(r.Context(), actor(r), t)
	if err != nil {
		WriteInternalError(w, "Failed to create backup")
		return
	}
	WriteCreated(w, info)
}

// DownloadBackup handles GET /api/backups/{name}.
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	f, info, err := h.backups.Open(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeBackupError(w, err, false)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		slog.Warn("backup download interrupted", "file", info.Name, "error", err)
	}
}

// DeleteBackup handles DELETE /api/backups/{name}.
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.Delete(r.Context(), actor(r), chi.URLParam(r, "name")); err != nil {
		writeBackupError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreBackup handles POST /api/backups/{name}/restore.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	res, err := h.backups.Restore(r.Context(), actor(r), chi.URLParam(r, "name"))
	if err != nil {
		writeBackupError(w, err, false)
		return
	}
	WriteSuccess(w, importResponse(res), nil)
}

// ImportBackup handles POST /api/backups/import with a multipart "file"
// field. The upload is spooled to a temporary file that the import removes.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeBackupError(w, backup.ErrTooLarge, true)
			return
		}
		WriteBadRequest(w, "A backup file is required in the \"file\" field", nil)
		return
	}
	defer func() { _ = file.Close() }()

	filename, err := util.UploadName(header.Filename)
	if err != nil || !strings.EqualFold(filepath.Ext(filename), ".json") {
		WriteBadRequest(w, "Backup file must have a .json extension", nil)
		return
	}
	if header.Size > h.maxUploadBytes {
		writeBackupError(w, backup.ErrTooLarge, true)
		return
	}

	path, err := spool(file)
	if err != nil {
		slog.Error("failed to store uploaded backup", "error", err)
		WriteInternalError(w, "Failed to store uploaded file")
		return
	}

	slog.Info("backup upload received", "file", filename, "size", header.Size)
	res, err := h.backups.ImportFile(r.Context(), actor(r), path)
	if err != nil {
		writeBackupError(w, err, true)
		return
	}
	WriteSuccess(w, importResponse(res), nil)
}

// spool copies src into a new temporary file and returns its path.
func spool(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "ngocms-import-*.json")
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// writeBackupError maps backup errors to HTTP responses. A missing file is
// a bad upload rather than an unknown resource when upload is set.
func writeBackupError(w http.ResponseWriter, err error, upload bool) {
	msg := backup.Message(err)
	switch {
	case errors.Is(err, backup.ErrInvalidJSON),
		errors.Is(err, backup.ErrMissingType),
		errors.Is(err, backup.ErrUnknownType),
		errors.Is(err, backup.ErrInvalidDocument),
		errors.Is(err, backup.ErrInvalidName):
		WriteBadRequest(w, msg, nil)
	case errors.Is(err, backup.ErrFileMissing):
		if upload {
			WriteBadRequest(w, msg, nil)
			return
		}
		WriteNotFound(w, msg)
	case errors.Is(err, backup.ErrTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "too_large", msg, nil)
	case errors.Is(err, backup.ErrPermission):
		WriteForbidden(w, msg)
	default:
		slog.Error("backup operation failed", "error", err, logging.Recorded())
		WriteInternalError(w, msg)
	}
}

func typeList() string {
	names := make([]string, len(backup.Types))
	for i, t := range backup.Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
