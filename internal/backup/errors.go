// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import "errors"

// Import failures. Each maps to a fixed user-facing message; callers match
// them with errors.Is.
var (
	ErrInvalidJSON     = errors.New("backup is not valid JSON")
	ErrMissingType     = errors.New("backup metadata.type is missing")
	ErrUnknownType     = errors.New("unknown backup type")
	ErrInvalidDocument = errors.New("backup document is malformed")
	ErrFileMissing     = errors.New("backup file not found")
	ErrPermission      = errors.New("permission denied reading backup")
	ErrTooLarge        = errors.New("backup exceeds the size limit")
	ErrDatabase        = errors.New("backup database operation failed")
	ErrInvalidName     = errors.New("invalid backup name")
)

// Message returns the user-facing message for an import or export error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidJSON):
		return "Invalid JSON file"
	case errors.Is(err, ErrMissingType):
		return "Backup type is missing"
	case errors.Is(err, ErrUnknownType):
		return "Unknown backup type"
	case errors.Is(err, ErrInvalidDocument):
		return "Invalid backup document"
	case errors.Is(err, ErrFileMissing):
		return "Backup file not found"
	case errors.Is(err, ErrPermission):
		return "Permission denied while reading backup"
	case errors.Is(err, ErrTooLarge):
		return "Backup file is too large"
	case errors.Is(err, ErrInvalidName):
		return "Invalid backup name"
	default:
		return "Import failed"
	}
}
