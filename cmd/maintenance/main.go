// Command maintenance runs one housekeeping pass and exits. It is meant to be
// scheduled from cron when MAINTENANCE_INTERVAL_MINS=0 disables the
// in-process runner.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YannKr/photoalbum/internal/app"
	"github.com/YannKr/photoalbum/internal/config"
)

func main() {
	retention := flag.Int("retention-days", -1, "override BACKUP_RETENTION_DAYS (0 disables the sweep)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg := config.Load()
	if *retention >= 0 {
		cfg.BackupRetentionDays = *retention
	}

	level := slog.LevelInfo
	if *verbose || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
	defer svc.DB.Close()

	rep := app.Maintenance(cfg, svc).RunOnce(ctx)
	slog.Info("maintenance done",
		"automatic_backups", rep.AutomaticBackups,
		"expired_backups", rep.ExpiredBackups,
		"expired_shares", rep.ExpiredShares,
		"expired_tokens", rep.ExpiredTokens,
		"expired_sessions", rep.ExpiredSessions,
		"optimized", rep.Optimized,
	)
}
