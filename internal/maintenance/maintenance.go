// Package maintenance runs the periodic housekeeping pass: automatic
// backups, backup retention, expiry of shares, API tokens and sessions, then
// a planner statistics refresh.
package maintenance

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/YannKr/photoalbum/internal/backup"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/gateway"
)

// Report counts what one pass did.
type Report struct {
	AutomaticBackups int
	ExpiredBackups   int
	ExpiredShares    int64
	ExpiredTokens    int64
	ExpiredSessions  int64
	Optimized        bool
}

type Runner struct {
	DB            *sql.DB
	Backups       *backup.Builder
	Gateway       *gateway.Gateway
	RetentionDays int
	Interval      time.Duration
	Now           func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx)
	slog.Info("maintenance scheduler started", "interval", r.Interval)
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	slog.Info("maintenance scheduler stopped")
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	r.RunOnce(ctx)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// RunOnce performs one pass. Each step logs its own failure and the pass
// carries on with the next.
func (r *Runner) RunOnce(ctx context.Context) Report {
	var rep Report
	start := time.Now()

	n, err := r.Backups.RunAutomatic(ctx)
	rep.AutomaticBackups = n
	if err != nil {
		slog.Error("maintenance: automatic backups", "error", err)
	} else if n > 0 {
		slog.Info("maintenance: automatic backups created", "count", n)
	}

	if ctx.Err() != nil {
		return rep
	}

	if r.RetentionDays > 0 {
		n, err := r.Backups.SweepRetention(ctx, r.RetentionDays)
		rep.ExpiredBackups = n
		if err != nil {
			slog.Error("maintenance: backup retention", "error", err)
		} else if n > 0 {
			slog.Info("maintenance: removed old backups", "count", n, "retention_days", r.RetentionDays)
		}
	}

	now := r.now()
	shares, tokens, err := r.Gateway.PurgeExpired(now)
	rep.ExpiredShares, rep.ExpiredTokens = shares, tokens
	if err != nil {
		slog.Error("maintenance: purge expired tokens", "error", err)
	} else if shares+tokens > 0 {
		slog.Info("maintenance: purged expired tokens", "shares", shares, "api_tokens", tokens)
	}

	sessions, err := db.DeleteExpiredSessions(r.DB, now)
	rep.ExpiredSessions = sessions
	if err != nil {
		slog.Error("maintenance: purge sessions", "error", err)
	} else if sessions > 0 {
		slog.Info("maintenance: purged expired sessions", "count", sessions)
	}

	if err := db.Optimize(r.DB); err != nil {
		slog.Warn("maintenance: optimize database", "error", err)
	} else {
		rep.Optimized = true
	}

	slog.Info("maintenance pass finished", "took", time.Since(start).Round(time.Millisecond))
	return rep
}
