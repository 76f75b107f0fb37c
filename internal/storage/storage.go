// Package storage maps owners and upload events to paths on disk. Every path
// is built from a validated owner id and a generated name; nothing a client
// sends becomes a path segment.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/model"
)

type Allocator struct {
	UploadsRoot string
	BackupsRoot string
}

func New(dataDir string) *Allocator {
	return &Allocator{
		UploadsRoot: filepath.Join(dataDir, "uploads"),
		BackupsRoot: filepath.Join(dataDir, "backups"),
	}
}

// UploadDir returns the owner's upload directory, creating it if needed.
func (a *Allocator) UploadDir(owner string) (string, error) {
	return ensureOwnerDir(a.UploadsRoot, owner)
}

// BackupDir returns the owner's backup directory, creating it if needed.
func (a *Allocator) BackupDir(owner string) (string, error) {
	return ensureOwnerDir(a.BackupsRoot, owner)
}

func ensureOwnerDir(root, owner string) (string, error) {
	if err := checkOwner(owner); err != nil {
		return "", err
	}
	dir := filepath.Join(root, owner)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperr.Infra("create owner directory", err)
	}
	return dir, nil
}

func checkOwner(owner string) error {
	if _, err := uuid.Parse(owner); err != nil {
		return apperr.Invalid("invalid owner id")
	}
	return nil
}

// StorageName generates the on-disk name for an upload: a random component,
// a time component and the lowercased extension of the original name.
func StorageName(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !safeExt(ext) {
		ext = ""
	}
	return fmt.Sprintf("%s_%d%s", strings.ReplaceAll(uuid.NewString(), "-", ""), now.UnixNano(), ext)
}

func safeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Extension returns the lowercase extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// PhotoPath is the live file of a stored photo. It does not create anything.
func (a *Allocator) PhotoPath(owner, storageName string) (string, error) {
	if err := checkOwner(owner); err != nil {
		return "", err
	}
	if err := checkName(storageName); err != nil {
		return "", err
	}
	return filepath.Join(a.UploadsRoot, owner, storageName), nil
}

// EditBackupPath is the single pre-edit copy slot for a photo.
func (a *Allocator) EditBackupPath(owner, storageName string) (string, error) {
	if err := checkName(storageName); err != nil {
		return "", err
	}
	dir, err := a.BackupDir(owner)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backup_"+storageName), nil
}

// ArchivePath names a new backup archive for owner.
func (a *Allocator) ArchivePath(owner string, typ model.BackupType, at time.Time) (string, error) {
	dir, err := a.BackupDir(owner)
	if err != nil {
		return "", err
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	prefix := "backup_"
	if typ == model.BackupAutomatic {
		prefix = "backup_auto_"
	}
	name := fmt.Sprintf("%s%s_%s_%s.zip", prefix, owner, at.UTC().Format("2006-01-02_15-04-05"), suffix)
	return filepath.Join(dir, name), nil
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return apperr.Invalid("invalid storage name")
	}
	return nil
}
