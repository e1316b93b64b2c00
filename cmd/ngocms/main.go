// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/olegiv/ngocms/internal/auth"
	"github.com/olegiv/ngocms/internal/backup"
	"github.com/olegiv/ngocms/internal/cache"
	"github.com/olegiv/ngocms/internal/config"
	"github.com/olegiv/ngocms/internal/handler"
	"github.com/olegiv/ngocms/internal/handler/api"
	"github.com/olegiv/ngocms/internal/logging"
	"github.com/olegiv/ngocms/internal/middleware"
	"github.com/olegiv/ngocms/internal/scheduler"
	"github.com/olegiv/ngocms/internal/service"
	"github.com/olegiv/ngocms/internal/store"
	"github.com/olegiv/ngocms/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// activityCleanupSchedule runs the activity log retention job nightly.
const activityCleanupSchedule = "30 3 * * *"

// options are the one-shot CLI commands. At most one is set.
type options struct {
	backupType  string
	restoreFile string
	tokenUser   string
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	var opts options
	flag.StringVar(&opts.backupType, "backup", "", "Create a backup of the given type (full, tables, sections) and exit")
	flag.StringVar(&opts.restoreFile, "restore", "", "Import a backup file and exit")
	flag.StringVar(&opts.tokenUser, "token", "", "Print an API token for the given user id and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ngocms - content backend for non-profit websites\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  JWT_SECRET             Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DATABASE_URL           sqlite://path or mysql://dsn (default: sqlite://./data/ngocms.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORT                   Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  APP_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STORAGE_PROVIDER       Backup storage: local|s3|supabase (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BACKUP_SCHEDULE        Cron expression for automatic backups (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REDIS_URL              Redis URL for the settings cache (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(buildInfo().String())
		os.Exit(0)
	}

	if err := run(opts); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func buildInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

// app holds the long-lived dependencies shared by the server and the CLI
// commands.
type app struct {
	cfg          *config.Config
	db           *sql.DB
	cache        cache.Cache
	cacheBackend string
	tokens       *auth.TokenManager
	activity     *service.ActivityService
	settings     *service.SettingsService
	backups      *backup.Service
}

func run(opts options) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	a, err := setup(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	switch {
	case opts.tokenUser != "":
		return a.printToken(ctx, opts.tokenUser)
	case opts.backupType != "":
		return a.createBackup(ctx, opts.backupType)
	case opts.restoreFile != "":
		return a.restoreBackup(ctx, opts.restoreFile)
	}

	return a.serve()
}

func setup(cfg *config.Config) (*app, error) {
	dialect, dsn, err := store.ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if dialect == store.DialectSQLite {
		// Ensure data directory exists
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "dialect", dialect)
	db, _, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	a := &app{cfg: cfg, db: db}

	slog.Info("running database migrations")
	if err := store.Migrate(db, dialect); err != nil {
		a.close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Mirror WARN and ERROR records into the activity log.
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(logging.NewActivityLogHandler(textHandler, db)))
	slog.Info("activity log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if _, err := store.Seed(ctx, db, store.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		a.close()
		return nil, fmt.Errorf("seeding database: %w", err)
	}
	if cfg.DoSeed {
		if err := store.SeedDemo(ctx, db); err != nil {
			a.close()
			return nil, fmt.Errorf("seeding demo content: %w", err)
		}
	}

	ttl := time.Duration(cfg.CacheTTL) * time.Second
	cacheResult, err := cache.NewCacheWithInfo(ctx, cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		TTL:              ttl,
		MaxSize:          cfg.CacheMaxSize,
		FallbackToMemory: true,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	a.cache = cacheResult.Cache
	a.cacheBackend = cacheResult.Backend
	slog.Info("cache initialized", "backend", cacheResult.Backend, "fallback", cacheResult.IsFallback)

	fs, err := backup.NewFs(ctx, backup.StorageOptions{
		Provider:       cfg.StorageProvider,
		Dir:            cfg.BackupDir,
		Bucket:         cfg.S3Bucket,
		Region:         cfg.S3Region,
		Endpoint:       cfg.S3Endpoint,
		AccessKeyID:    cfg.S3AccessKeyID,
		SecretKey:      cfg.S3SecretKey,
		ForcePathStyle: cfg.S3ForcePathStyle,
		Prefix:         cfg.S3Prefix,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initializing backup storage: %w", err)
	}
	slog.Info("backup storage ready", "provider", cfg.StorageProvider)

	a.tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	a.activity = service.NewActivityService(db)
	a.settings = service.NewSettingsService(db, a.cache, ttl)
	a.backups = backup.NewService(db, fs, a.activity, slog.Default(), cfg.BackupMaxUploadBytes())
	a.backups.OnImport(func(ctx context.Context, _ backup.Type) {
		a.settings.Invalidate(ctx)
	})
	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database connection", "error", err)
	}
}

// backupDir returns the local backup directory for the disk space check, or
// "" when backups live in object storage.
func (a *app) backupDir() string {
	if a.cfg.StorageProvider == config.StorageLocal {
		return a.cfg.BackupDir
	}
	return ""
}

func (a *app) serve() error {
	sched := scheduler.New(slog.Default())
	if a.cfg.ScheduledBackupsEnabled() {
		t, err := backup.ParseType(a.cfg.BackupScheduleType)
		if err != nil {
			return err
		}
		retention := time.Duration(a.cfg.BackupRetentionDays) * 24 * time.Hour
		if err := sched.Add(a.backups.ScheduledJob(a.cfg.BackupSchedule, t, retention)); err != nil {
			return fmt.Errorf("scheduling backups: %w", err)
		}
		slog.Info("scheduled backups enabled", "schedule", a.cfg.BackupSchedule, "type", t)
	}
	if a.cfg.ActivityRetentionDays > 0 {
		retention := time.Duration(a.cfg.ActivityRetentionDays) * 24 * time.Hour
		if err := sched.Add(a.activity.CleanupJob(activityCleanupSchedule, retention)); err != nil {
			return fmt.Errorf("scheduling activity cleanup: %w", err)
		}
	}
	sched.Start()

	info := buildInfo()
	health := handler.NewHealthHandler(a.db, a.backupDir(), info.Version).WithCache(a.cache, a.cacheBackend)
	apiHandler := api.NewHandler(api.Deps{
		DB:             a.db,
		Settings:       a.settings,
		Activity:       a.activity,
		Backups:        a.backups,
		Version:        info,
		MaxUploadBytes: a.cfg.BackupMaxUploadBytes(),
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(a.cfg.IsDevelopment())))

	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Mount("/api", apiHandler.Routes(api.RouterConfig{
		Tokens:        a.tokens,
		Health:        health,
		BackupLimiter: middleware.NewIPRateLimiter(a.cfg.BackupRateLimit), // nil when disabled
	}))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteNotFound(w, "Not found")
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              a.cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       60 * time.Second, // Backup uploads can be large
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", a.cfg.ServerAddr(), "env", a.cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		sched.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sched.Stop()
		return fmt.Errorf("server shutdown: %w", err)
	}
	sched.Stop()

	slog.Info("server stopped")
	return nil
}

// printToken prints a signed API token for an existing active user.
func (a *app) printToken(ctx context.Context, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", rawID)
	}
	user, err := store.New(a.db).GetUserByID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading user %d: %w", id, err)
	}
	token, exp, err := a.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "token for %s (%s), expires %s\n", user.Username, user.Role, exp.Format(time.RFC3339))
	_, _ = fmt.Println(token)
	return nil
}

func (a *app) createBackup(ctx context.Context, rawType string) error {
	t, err := backup.ParseType(rawType)
	if err != nil {
		return err
	}
	info, err := a.backups.Create(ctx, backup.Actor{}, t)
	if err != nil {
		return fmt.Errorf("creating backup: %s: %w", backup.Message(err), err)
	}
	_, _ = fmt.Printf("%s (%d bytes)\n", info.Name, info.Size)
	return nil
}

// restoreBackup imports a file from the local disk. The file is kept.
func (a *app) restoreBackup(ctx context.Context, path string) error {
	f, err := afero.NewOsFs().Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	res, err := a.backups.ImportReader(ctx, backup.Actor{}, f, path)
	if err != nil {
		return fmt.Errorf("%s: %w", backup.Message(err), err)
	}
	for _, table := range res.Type.Tables() {
		_, _ = fmt.Printf("%-18s %d rows\n", table, res.Inserted[table])
	}
	return nil
}
