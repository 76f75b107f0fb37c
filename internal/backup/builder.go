// Package backup snapshots a user's photos into a zip archive and tracks each
// archive through pending, completed and failed.
package backup

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/storage"
)

const (
	DefaultAutoInterval = 7 * 24 * time.Hour
	metadataEntry       = "metadata.json"
	photosDir           = "photos/"
)

type Builder struct {
	DB           *sql.DB
	Alloc        *storage.Allocator
	Mirror       storage.Mirror // optional
	AutoInterval time.Duration
	Now          func() time.Time
}

func New(database *sql.DB, alloc *storage.Allocator) *Builder {
	return &Builder{DB: database, Alloc: alloc, AutoInterval: DefaultAutoInterval, Now: time.Now}
}

// Metadata is written to metadata.json inside every archive.
type Metadata struct {
	BackupDate    time.Time       `json:"backup_date"`
	BackupType    string          `json:"backup_type"`
	UserID        string          `json:"user_id"`
	Username      string          `json:"username"`
	PhotosCount   int             `json:"photos_count"`
	TotalSize     int64           `json:"total_size"`
	Photos        []PhotoMetadata `json:"photos"`
	MissingPhotos []string        `json:"missing_photos,omitempty"`
}

type PhotoMetadata struct {
	ID           string     `json:"id"`
	AlbumID      string     `json:"album_id"`
	ArchivePath  string     `json:"archive_path"` // empty when Missing
	Missing      bool       `json:"missing,omitempty"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"original_name"`
	FileSize     int64      `json:"file_size"`
	Width        *int       `json:"width"`
	Height       *int       `json:"height"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
}

// Create runs a backup to completion within the call.
func (b *Builder) Create(ctx context.Context, owner string, typ model.BackupType) (*model.Backup, error) {
	bk, err := b.Begin(owner, typ)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, bk.ID)
}

// Begin records a pending backup and its target path.
func (b *Builder) Begin(owner string, typ model.BackupType) (*model.Backup, error) {
	if typ != model.BackupManual && typ != model.BackupAutomatic {
		return nil, apperr.Invalid(fmt.Sprintf("unknown backup type %q", typ))
	}
	now := b.Now()
	target, err := b.Alloc.ArchivePath(owner, typ, now)
	if err != nil {
		return nil, err
	}
	bk := &model.Backup{
		ID:        uuid.NewString(),
		UserID:    owner,
		Type:      typ,
		FilePath:  target,
		Status:    model.BackupPending,
		CreatedAt: now,
	}
	if err := db.CreateBackup(b.DB, bk); err != nil {
		return nil, apperr.Infra("insert backup", err)
	}
	return bk, nil
}

// Build writes the archive for a pending backup and moves it to completed,
// or to failed with the partial archive removed.
func (b *Builder) Build(ctx context.Context, id string) (*model.Backup, error) {
	bk, err := db.GetBackupByID(b.DB, id)
	if err != nil {
		return nil, apperr.Infra("load backup", err)
	}
	if bk == nil {
		return nil, apperr.NotFoundf("backup not found")
	}
	if bk.Status != model.BackupPending {
		return nil, apperr.New(apperr.StateConflict, apperr.CodeInvalidState, "backup is already "+string(bk.Status))
	}

	user, err := db.GetUserByID(b.DB, bk.UserID)
	if err != nil || user == nil {
		return nil, b.fail(bk, apperr.Infra("load backup owner", err))
	}
	photos, err := db.ListPhotos(b.DB, bk.UserID, "")
	if err != nil {
		return nil, b.fail(bk, apperr.Infra("list photos", err))
	}
	if len(photos) == 0 {
		return nil, b.fail(bk, apperr.New(apperr.Validation, apperr.CodeNothingToBackup, "there are no photos to back up"))
	}

	meta, err := b.writeArchive(ctx, bk, user, photos)
	if err != nil {
		return nil, b.fail(bk, err)
	}

	fi, err := os.Stat(bk.FilePath)
	if err != nil {
		return nil, b.fail(bk, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "measure archive", err))
	}
	completedAt := b.Now()
	ok, err := db.CompleteBackup(b.DB, bk.ID, fi.Size(), meta.PhotosCount, completedAt)
	if err != nil {
		return nil, b.fail(bk, apperr.Infra("complete backup", err))
	}
	if !ok {
		// Deleted or finalised elsewhere while we were writing.
		os.Remove(bk.FilePath)
		return nil, apperr.New(apperr.StateConflict, apperr.CodeInvalidState, "backup is no longer pending")
	}

	bk.Status = model.BackupCompleted
	bk.FileSize = fi.Size()
	bk.PhotosCount = meta.PhotosCount
	bk.CompletedAt = &completedAt
	slog.Info("backup completed", "backup", bk.ID, "user", bk.UserID,
		"photos", meta.PhotosCount, "size", humanize.IBytes(uint64(fi.Size())))

	if b.Mirror != nil {
		key := storage.MirrorKey(bk.UserID, filepath.Base(bk.FilePath))
		if err := b.Mirror.Put(ctx, key, bk.FilePath); err != nil {
			slog.Warn("backup: mirror archive", "backup", bk.ID, "error", err)
		}
	}
	return bk, nil
}

func (b *Builder) writeArchive(ctx context.Context, bk *model.Backup, user *model.User, photos []model.Photo) (*Metadata, error) {
	f, err := os.OpenFile(bk.FilePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "create archive", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	meta := &Metadata{
		BackupDate: b.Now().UTC(),
		BackupType: string(bk.Type),
		UserID:     user.ID,
		Username:   user.Username,
		Photos:     []PhotoMetadata{},
	}
	used := make(map[string]bool, len(photos))

	for _, p := range photos {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "backup cancelled", err)
		}
		pm := PhotoMetadata{
			ID:           p.ID,
			AlbumID:      p.AlbumID,
			Filename:     p.Filename,
			OriginalName: p.OriginalName,
			FileSize:     p.FileSize,
			Width:        p.Width,
			Height:       p.Height,
			UploadedAt:   p.UploadedAt.UTC(),
			EditedAt:     p.EditedAt,
		}
		entry, n, err := b.archivePhoto(zw, p, used)
		if err != nil {
			return nil, err
		}
		if entry == "" {
			pm.Missing = true
			meta.MissingPhotos = append(meta.MissingPhotos, p.ID)
		} else {
			pm.ArchivePath = entry
			meta.PhotosCount++
			meta.TotalSize += n
		}
		meta.Photos = append(meta.Photos, pm)
	}

	w, err := zw.Create(metadataEntry)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "add metadata", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "encode metadata", err)
	}

	if err := zw.Close(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "finalize archive", err)
	}
	if err := f.Sync(); err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "sync archive", err)
	}
	return meta, nil
}

// archivePhoto copies one photo into the archive. An empty entry name means
// the file was not on disk and nothing was written.
func (b *Builder) archivePhoto(zw *zip.Writer, p model.Photo, used map[string]bool) (string, int64, error) {
	src, err := b.Alloc.PhotoPath(p.UserID, p.Filename)
	if err != nil {
		return "", 0, nil
	}
	entry := entryName(p, used)
	n, err := addFile(zw, entry, src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, apperr.Wrap(apperr.Infrastructure, apperr.CodeArchiveCreation, "add "+entry, err)
	}
	used[entry] = true
	return entry, n, nil
}

// entryName keys an archive entry by the photo's original name. When two
// photos share a name the later one gets its id before the extension.
func entryName(p model.Photo, used map[string]bool) string {
	base := strings.NewReplacer("/", "_", "\\", "_").Replace(p.OriginalName)
	if base == "" || base == "." || base == ".." {
		base = p.Filename
	}
	name := photosDir + base
	if !used[name] {
		return name
	}
	ext := path.Ext(base)
	return photosDir + strings.TrimSuffix(base, ext) + "_" + p.ID + ext
}

func addFile(zw *zip.Writer, name, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, err
	}
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return 0, err
	}
	hdr.Name = name
	// Photos are already compressed.
	hdr.Method = zip.Store
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, in)
}

// fail removes any partial archive and marks the backup failed. It returns
// cause for the caller to propagate.
func (b *Builder) fail(bk *model.Backup, cause error) error {
	if err := os.Remove(bk.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("backup: remove partial archive", "backup", bk.ID, "error", err)
	}
	if _, err := db.FailBackup(b.DB, bk.ID, cause.Error(), b.Now()); err != nil {
		slog.Error("backup: mark failed", "backup", bk.ID, "error", err)
	}
	slog.Warn("backup failed", "backup", bk.ID, "user", bk.UserID, "error", cause)
	return cause
}
