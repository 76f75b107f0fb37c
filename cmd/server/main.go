// Command server runs the photo album HTTP service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/YannKr/photoalbum/internal/app"
	"github.com/YannKr/photoalbum/internal/config"
)

func main() {
	cfg := config.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if cfg.SessionSecret == config.DefaultSessionSecret {
		slog.Warn("SESSION_SECRET is the built-in placeholder; set it before exposing the server")
	}
	slog.Info("config",
		"data_dir", cfg.DataDir,
		"db_backend", cfg.DBBackend,
		"max_upload", humanize.IBytes(uint64(cfg.MaxUploadBytes)),
		"allowed_types", cfg.AllowedTypes,
		"backup_async", cfg.BackupAsync,
		"s3_mirror", cfg.S3Enabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
