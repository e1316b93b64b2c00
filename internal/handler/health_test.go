// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/ngocms/internal/cache"
	"github.com/olegiv/ngocms/internal/testutil"
)

func newTestHealthHandler(t *testing.T, backupDir string) *HealthHandler {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return NewHealthHandler(db, backupDir, "v1.2.3")
}

func TestHealthHandler_Health_Public(t *testing.T) {
	h := newTestHealthHandler(t, t.TempDir())

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != StatusHealthy {
		t.Errorf("status = %v; want healthy", resp["status"])
	}
	for _, key := range []string{"checks", "version", "uptime"} {
		if _, ok := resp[key]; ok {
			t.Errorf("public response contains %q", key)
		}
	}
}

func TestHealthHandler_Details(t *testing.T) {
	h := newTestHealthHandler(t, t.TempDir())

	w := httptest.NewRecorder()
	h.Details(w, httptest.NewRequest(http.MethodGet, "/api/health?verbose=true", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}

	var resp HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Version != "v1.2.3" {
		t.Errorf("version = %q; want v1.2.3", resp.Version)
	}
	if resp.Checks["database"].Status != StatusHealthy {
		t.Errorf("database check = %+v; want healthy", resp.Checks["database"])
	}
	if _, ok := resp.Checks["backup_storage"]; !ok {
		t.Error("missing backup_storage check")
	}
	if resp.System == nil || resp.System.GoVersion == "" {
		t.Error("verbose response missing system info")
	}
}

func TestHealthHandler_Details_ObjectStorage(t *testing.T) {
	h := newTestHealthHandler(t, "")

	w := httptest.NewRecorder()
	h.Details(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var resp HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := resp.Checks["backup_storage"]; ok {
		t.Error("backup_storage check present without a local directory")
	}
	if resp.System != nil {
		t.Error("system info present without verbose=true")
	}
}

func TestHealthHandler_MissingBackupDir(t *testing.T) {
	h := newTestHealthHandler(t, filepath.Join(t.TempDir(), "not-yet"))

	check := h.checkDiskSpace()
	if check.Status != StatusHealthy {
		t.Errorf("status = %q; want healthy", check.Status)
	}
}

func TestHealthHandler_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	cleanup()
	h := NewHealthHandler(db, "", "dev")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d; want 503", w.Code)
	}

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness status = %d; want 503", w.Code)
	}
}

func TestHealthHandler_CacheCheck(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute, 0)
	h := newTestHealthHandler(t, "").WithCache(mem, cache.BackendMemory)

	details := func() (int, HealthStatus) {
		w := httptest.NewRecorder()
		h.Details(w, httptest.NewRequest(http.MethodGet, "/api/health/details", nil))
		var resp HealthStatus
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		return w.Code, resp
	}

	code, resp := details()
	if code != http.StatusOK {
		t.Fatalf("status = %d; want 200", code)
	}
	if c := resp.Checks["cache"]; c.Status != StatusHealthy || c.Message != cache.BackendMemory {
		t.Errorf("cache check = %+v; want healthy memory", c)
	}

	_ = mem.Close()

	code, resp = details()
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d; want 503", code)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("overall = %q; want degraded", resp.Status)
	}
	if c := resp.Checks["cache"]; c.Status != StatusDegraded {
		t.Errorf("cache check = %+v; want degraded", c)
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := newTestHealthHandler(t, "")

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", w.Code)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
