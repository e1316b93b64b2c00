// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

// ErrBadFilename is returned by UploadName when nothing usable remains.
var ErrBadFilename = errors.New("invalid filename")

// UploadName reduces a client-supplied upload name to its last path
// element. Browsers on Windows send full paths with backslashes, so both
// separators count. Names with control characters are rejected since the
// result is written to logs and activity details.
func UploadName(name string) (string, error) {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, name)
	}

	base := strings.TrimSpace(parts[len(parts)-1])
	if base == "" || base == "." || base == ".." || strings.ContainsFunc(base, unicode.IsControl) {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	return base, nil
}

// EscapesRoot reports whether p, read relative to a storage root, resolves
// outside of it. Absolute paths escape; "a/../b" does not.
func EscapesRoot(p string) bool {
	p = strings.ReplaceAll(p, `\`, "/")
	if path.IsAbs(p) {
		return true
	}
	cleaned := path.Clean(p)
	return cleaned == ".." || strings.HasPrefix(cleaned, "../")
}
