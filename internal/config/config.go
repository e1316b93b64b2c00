// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"your-super-secret-jwt-key-change-this",
}

// Storage providers accepted by STORAGE_PROVIDER.
const (
	StorageLocal      = "local"
	StorageS3         = "s3"
	StorageSupabase   = "supabase"
	storageCloudinary = "cloudinary"
)

// backupTypes mirrors the backup profiles; config cannot import the backup
// package without a cycle through main.
var backupTypes = []string{"full", "tables", "sections"}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string        `env:"DATABASE_URL" envDefault:"sqlite://./data/ngocms.db"`
	JWTSecret   string        `env:"JWT_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	ServerHost  string        `env:"HOST" envDefault:"localhost"`
	ServerPort  int           `env:"PORT" envDefault:"8080"`
	Env         string        `env:"APP_ENV" envDefault:"development"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`

	// Backup storage
	StorageProvider  string `env:"STORAGE_PROVIDER" envDefault:"local"`
	BackupDir        string `env:"BACKUP_DIR" envDefault:"./backups"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	S3Prefix         string `env:"S3_PREFIX" envDefault:"backups"`

	// Scheduled backups and retention
	BackupSchedule        string `env:"BACKUP_SCHEDULE"` // cron expression; empty disables
	BackupScheduleType    string `env:"BACKUP_SCHEDULE_TYPE" envDefault:"full"`
	BackupRetentionDays   int    `env:"BACKUP_RETENTION_DAYS" envDefault:"30"` // 0 keeps everything
	BackupMaxUploadMB     int64  `env:"BACKUP_MAX_UPLOAD_MB" envDefault:"100"`
	BackupRateLimit       int    `env:"BACKUP_RATE_LIMIT" envDefault:"10"`      // requests per minute per IP
	ActivityRetentionDays int    `env:"ACTIVITY_RETENTION_DAYS" envDefault:"0"` // 0 keeps everything

	// Cache configuration
	RedisURL     string `env:"REDIS_URL"`
	CachePrefix  string `env:"CACHE_PREFIX" envDefault:"ngocms:"`
	CacheTTL     int    `env:"CACHE_TTL" envDefault:"3600"` // seconds
	CacheMaxSize int    `env:"CACHE_MAX_SIZE" envDefault:"10000"`

	// Seeding
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.org"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	DoSeed        bool   `env:"DO_SEED" envDefault:"false"` // demo content
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// ScheduledBackupsEnabled reports whether BACKUP_SCHEDULE is set.
func (c Config) ScheduledBackupsEnabled() bool {
	return c.BackupSchedule != ""
}

// BackupMaxUploadBytes is BACKUP_MAX_UPLOAD_MB in bytes.
func (c Config) BackupMaxUploadBytes() int64 {
	return c.BackupMaxUploadMB << 20
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinJWTSecretLength is the minimum length of the HS256 signing secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validateSecret(); err != nil {
		return nil, err
	}
	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}
	if err := cfg.validateBackups(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateSecret() error {
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(c.JWTSecret))
	}

	if slices.Contains(knownWeakSecrets, c.JWTSecret) {
		return fmt.Errorf("JWT_SECRET is a known default value and must not be used; " +
			"generate a secure secret with: openssl rand -base64 32")
	}

	if !hasMinimumEntropy(c.JWTSecret) {
		slog.Warn("JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) validateStorage() error {
	c.StorageProvider = strings.ToLower(strings.TrimSpace(c.StorageProvider))

	switch c.StorageProvider {
	case StorageLocal:
		if c.BackupDir == "" {
			return fmt.Errorf("BACKUP_DIR must not be empty for local storage")
		}
	case StorageS3, StorageSupabase:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for STORAGE_PROVIDER=%s", c.StorageProvider)
		}
		if c.StorageProvider == StorageSupabase && c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required for STORAGE_PROVIDER=supabase")
		}
	case storageCloudinary:
		return fmt.Errorf("STORAGE_PROVIDER=cloudinary cannot hold backups; use local, s3 or supabase")
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.StorageProvider)
	}
	return nil
}

func (c *Config) validateBackups() error {
	if !slices.Contains(backupTypes, c.BackupScheduleType) {
		return fmt.Errorf("BACKUP_SCHEDULE_TYPE must be one of %s, got %q",
			strings.Join(backupTypes, ", "), c.BackupScheduleType)
	}
	if c.BackupSchedule != "" {
		if _, err := cron.ParseStandard(c.BackupSchedule); err != nil {
			return fmt.Errorf("invalid BACKUP_SCHEDULE %q: %w", c.BackupSchedule, err)
		}
	}
	if c.BackupRetentionDays < 0 || c.ActivityRetentionDays < 0 {
		return fmt.Errorf("retention days must not be negative")
	}
	if c.BackupMaxUploadMB <= 0 {
		return fmt.Errorf("BACKUP_MAX_UPLOAD_MB must be positive, got %d", c.BackupMaxUploadMB)
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	classes := 0
	for _, set := range []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	} {
		if strings.ContainsAny(s, set) {
			classes++
		}
	}
	return classes >= 3
}
