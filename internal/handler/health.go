// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the unauthenticated health and readiness endpoints.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/olegiv/ngocms/internal/cache"
)

// Health states reported by the checks.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// minBackupSpace is the free space below which the backup check degrades.
const minBackupSpace = 100 * 1024 * 1024

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	backupDir string // empty when backups live in object storage
	version   string
	startTime time.Time

	cache        cache.Cache
	cacheBackend string
}

// NewHealthHandler creates a new health handler. backupDir is checked for
// free space when non-empty.
func NewHealthHandler(db *sql.DB, backupDir, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		backupDir: backupDir,
		version:   version,
		startTime: time.Now(),
	}
}

// WithCache adds a check of the settings cache to the detailed report. A
// failing cache degrades the service: settings reads fall through to the
// database.
func (h *HealthHandler) WithCache(c cache.Cache, backend string) *HealthHandler {
	h.cache = c
	h.cacheBackend = backend
	return h
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatusPublic is the minimal health response for unauthenticated callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed report served to administrators.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. Only the overall state is exposed.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, _ := h.evaluate(r.Context())
	writeJSON(w, statusCode(status), HealthStatusPublic{Status: status})
}

// Details handles GET /api/health for administrators. ?verbose=true adds
// runtime statistics.
func (h *HealthHandler) Details(w http.ResponseWriter, r *http.Request) {
	status, checks := h.evaluate(r.Context())

	report := HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}
	if r.URL.Query().Get("verbose") == "true" {
		report.System = systemInfo()
	}

	writeJSON(w, statusCode(status), report)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. Ready means the database answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checkDatabase(r.Context()).Status != StatusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) evaluate(ctx context.Context) (string, map[string]Check) {
	checks := map[string]Check{"database": h.checkDatabase(ctx)}
	if h.backupDir != "" {
		checks["backup_storage"] = h.checkDiskSpace()
	}
	if h.cache != nil {
		checks["cache"] = h.checkCache(ctx)
	}

	overall := StatusHealthy
	for _, c := range checks {
		if c.Status != StatusHealthy {
			overall = StatusDegraded
		}
	}
	return overall, checks
}

func statusCode(status string) int {
	if status != StatusHealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// checkDatabase verifies database connectivity.
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: latency.String(),
		}
	}
	return Check{
		Status:  StatusHealthy,
		Message: "Connected",
		Latency: latency.String(),
	}
}

func (h *HealthHandler) checkCache(ctx context.Context) Check {
	start := time.Now()
	err := h.cache.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%s cache unavailable: %v", h.cacheBackend, err),
			Latency: latency.String(),
		}
	}
	return Check{
		Status:  StatusHealthy,
		Message: h.cacheBackend,
		Latency: latency.String(),
	}
}

// checkDiskSpace checks available space in the backup directory.
func (h *HealthHandler) checkDiskSpace() Check {
	if _, err := os.Stat(h.backupDir); os.IsNotExist(err) {
		// Created on the first backup.
		return Check{
			Status:  StatusHealthy,
			Message: "Backup directory does not exist yet",
		}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(h.backupDir, &stat); err != nil {
		return Check{
			Status:  StatusUnhealthy,
			Message: "Failed to check disk space: " + err.Error(),
		}
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	available := formatBytes(availableBytes)

	if availableBytes < minBackupSpace {
		return Check{
			Status:  StatusDegraded,
			Message: "Low disk space: " + available + " available",
		}
	}
	return Check{
		Status:  StatusHealthy,
		Message: available + " available",
	}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
