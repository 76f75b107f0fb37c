package backup

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/storage"
)

func (b *Builder) List(owner string) ([]model.Backup, error) {
	backups, err := db.ListBackups(b.DB, owner)
	if err != nil {
		return nil, apperr.Infra("list backups", err)
	}
	return backups, nil
}

func (b *Builder) Get(owner, id string) (*model.Backup, error) {
	bk, err := db.GetBackup(b.DB, id, owner)
	if err != nil {
		return nil, apperr.Infra("load backup", err)
	}
	if bk == nil {
		return nil, apperr.NotFoundf("backup not found")
	}
	return bk, nil
}

// Open returns a completed backup whose archive is still on disk.
func (b *Builder) Open(owner, id string) (*model.Backup, error) {
	bk, err := b.Get(owner, id)
	if err != nil {
		return nil, err
	}
	if bk.Status != model.BackupCompleted {
		return nil, apperr.NotFoundf("backup not found")
	}
	if _, err := os.Stat(bk.FilePath); err != nil {
		return nil, apperr.NotFoundf("backup archive is missing")
	}
	return bk, nil
}

// Delete removes the archive (best-effort) and then the row.
func (b *Builder) Delete(ctx context.Context, owner, id string) error {
	bk, err := b.Get(owner, id)
	if err != nil {
		return err
	}
	b.removeArchive(ctx, bk)
	ok, err := db.DeleteBackup(b.DB, id, owner)
	if err != nil {
		return apperr.Infra("delete backup", err)
	}
	if !ok {
		return apperr.NotFoundf("backup not found")
	}
	return nil
}

func (b *Builder) removeArchive(ctx context.Context, bk *model.Backup) {
	if err := os.Remove(bk.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("backup: remove archive", "backup", bk.ID, "error", err)
	}
	if b.Mirror != nil && bk.Status == model.BackupCompleted {
		key := storage.MirrorKey(bk.UserID, filepath.Base(bk.FilePath))
		if err := b.Mirror.Delete(ctx, key); err != nil {
			slog.Warn("backup: remove mirrored archive", "backup", bk.ID, "error", err)
		}
	}
}

// AutomaticDue reports whether owner lacks a completed automatic backup
// within the automatic interval.
func (b *Builder) AutomaticDue(owner string) (bool, error) {
	since := b.Now().Add(-b.AutoInterval)
	fresh, err := db.HasCompletedBackupSince(b.DB, owner, model.BackupAutomatic, since)
	if err != nil {
		return false, apperr.Infra("check automatic backups", err)
	}
	return !fresh, nil
}

// RunAutomatic backs up every opted-in user that is due and has photos. It
// returns the number of backups completed.
func (b *Builder) RunAutomatic(ctx context.Context) (int, error) {
	users, err := db.ListBackupEnabledUsers(b.DB)
	if err != nil {
		return 0, apperr.Infra("list backup users", err)
	}

	created := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		due, err := b.AutomaticDue(u.ID)
		if err != nil {
			slog.Error("backup: automatic due check", "user", u.ID, "error", err)
			continue
		}
		if !due {
			continue
		}
		n, err := db.CountPhotos(b.DB, u.ID)
		if err != nil {
			slog.Error("backup: count photos", "user", u.ID, "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		if _, err := b.Create(ctx, u.ID, model.BackupAutomatic); err != nil {
			slog.Error("backup: automatic backup", "user", u.ID, "error", err)
			continue
		}
		created++
	}
	return created, nil
}

// SweepRetention deletes completed backups older than days.
func (b *Builder) SweepRetention(ctx context.Context, days int) (int, error) {
	cutoff := b.Now().Add(-time.Duration(days) * 24 * time.Hour)
	old, err := db.ListCompletedBackupsBefore(b.DB, cutoff)
	if err != nil {
		return 0, apperr.Infra("list old backups", err)
	}
	removed := 0
	for i := range old {
		bk := &old[i]
		b.removeArchive(ctx, bk)
		if _, err := db.DeleteBackup(b.DB, bk.ID, bk.UserID); err != nil {
			slog.Error("backup: delete expired row", "backup", bk.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
