// Package app wires the photo album server together and runs it until ctx
// is cancelled.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/YannKr/photoalbum"
	"github.com/YannKr/photoalbum/internal/backup"
	"github.com/YannKr/photoalbum/internal/config"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/diskstat"
	"github.com/YannKr/photoalbum/internal/gateway"
	"github.com/YannKr/photoalbum/internal/handler"
	"github.com/YannKr/photoalbum/internal/imaging"
	"github.com/YannKr/photoalbum/internal/library"
	"github.com/YannKr/photoalbum/internal/maintenance"
	"github.com/YannKr/photoalbum/internal/sse"
	"github.com/YannKr/photoalbum/internal/storage"
	"github.com/YannKr/photoalbum/internal/worker"
)

// Services is everything the server and the maintenance command share.
type Services struct {
	DB      *sql.DB
	Alloc   *storage.Allocator
	Library *library.Library
	Engine  *imaging.Engine
	Backups *backup.Builder
	Gateway *gateway.Gateway
}

// Open prepares the data directory and database and builds the services.
// The caller closes Services.DB.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	for _, dir := range []string{cfg.DataDir, filepath.Join(cfg.DataDir, "uploads"), filepath.Join(cfg.DataDir, "backups")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	database, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, photoalbum.MigrationFS); err != nil {
		database.Close()
		return nil, err
	}
	slog.Info("database ready", "backend", cfg.DBBackend)

	alloc := storage.New(cfg.DataDir)

	backups := backup.New(database, alloc)
	if cfg.AutoBackupIntervalDays > 0 {
		backups.AutoInterval = time.Duration(cfg.AutoBackupIntervalDays) * 24 * time.Hour
	}
	if cfg.S3Enabled() {
		mirror, err := storage.NewS3Mirror(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		backups.Mirror = mirror
		slog.Info("backup mirroring enabled", "bucket", cfg.S3Bucket)
	}

	return &Services{
		DB:      database,
		Alloc:   alloc,
		Library: library.New(database, alloc, cfg.MaxUploadBytes, cfg.AllowedTypes),
		Engine:  imaging.New(database, alloc),
		Backups: backups,
		Gateway: gateway.New(database),
	}, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.DBBackend == "turso" {
		return db.OpenTurso(cfg.TursoURL, cfg.TursoToken)
	}
	return db.Open(cfg.DataDir)
}

// Maintenance builds the housekeeping runner for svc.
func Maintenance(cfg *config.Config, svc *Services) *maintenance.Runner {
	return &maintenance.Runner{
		DB:            svc.DB,
		Backups:       svc.Backups,
		Gateway:       svc.Gateway,
		RetentionDays: cfg.BackupRetentionDays,
		Interval:      time.Duration(cfg.MaintenanceIntervalMins) * time.Minute,
		Now:           time.Now,
	}
}

func Run(ctx context.Context, cfg *config.Config) error {
	svc, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.DB.Close()

	// Refuse uploads when the data volume is nearly full.
	diskCache := diskstat.New(cfg.DataDir, 60*time.Second, cfg.DiskBlockPct)
	diskCache.Start()
	defer diskCache.Stop()
	svc.Library.Space = diskCache

	sseHub := sse.New()

	if cfg.BackupAsync {
		pool := worker.NewPool(svc.DB, svc.Backups, sseHub, cfg.WorkerCount)
		pool.Start(ctx)
		defer pool.Stop()
	}

	if cfg.MaintenanceIntervalMins > 0 {
		runner := Maintenance(cfg, svc)
		runner.Start(ctx)
		defer runner.Stop()
	}

	// Rate limiter for auth endpoints: 5 requests/minute, burst of 5
	authRL := handler.NewRateLimiter(5.0/60.0, 5)
	defer authRL.Stop()

	h := handler.New(svc.DB, cfg, svc.Library, svc.Engine, svc.Backups, svc.Gateway, sseHub)
	router := h.Routes(authRL)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
