// Package library is the authoritative store of photos and the albums and
// categories they are filed under.
package library

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/imaging"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/storage"
	"github.com/YannKr/photoalbum/internal/upload"
)

const (
	DefaultCategoryName  = "General"
	DefaultCategoryDesc  = "Default category"
	DefaultCategoryColor = "#667eea"
	DefaultAlbumName     = "My Album"
	DefaultAlbumDesc     = "Main album"
)

// SpaceChecker reports whether the data volume is too full to accept uploads.
type SpaceChecker interface {
	Full() bool
}

type Library struct {
	DB        *sql.DB
	Alloc     *storage.Allocator
	Validator *upload.Validator
	Space     SpaceChecker // optional
	Now       func() time.Time
}

func New(database *sql.DB, alloc *storage.Allocator, maxBytes int64, allowed []string) *Library {
	l := &Library{DB: database, Alloc: alloc, Now: time.Now}
	l.Validator = upload.NewValidator(maxBytes, allowed, l)
	return l
}

// EnsureOwnerHasAlbum returns the owner's oldest album, creating the default
// category and album first when the owner has none. Repeated calls never
// create a second default category.
func (l *Library) EnsureOwnerHasAlbum(owner string) (string, error) {
	album, err := db.OldestAlbum(l.DB, owner)
	if err != nil {
		return "", apperr.Infra("find album", err)
	}
	if album != nil {
		return album.ID, nil
	}

	now := l.Now()
	cat, err := db.InsertCategoryIfAbsent(l.DB, &model.Category{
		ID:          uuid.NewString(),
		UserID:      owner,
		Name:        DefaultCategoryName,
		Description: DefaultCategoryDesc,
		Color:       DefaultCategoryColor,
		CreatedAt:   now,
	})
	if err != nil || cat == nil {
		return "", apperr.Infra("create default category", err)
	}

	album, err = db.InsertAlbumIfAbsent(l.DB, &model.Album{
		ID:          uuid.NewString(),
		UserID:      owner,
		CategoryID:  &cat.ID,
		Name:        DefaultAlbumName,
		Description: DefaultAlbumDesc,
		CreatedAt:   now,
	})
	if err != nil || album == nil {
		return "", apperr.Infra("create default album", err)
	}
	slog.Info("created default album", "user", owner, "album", album.ID)
	return album.ID, nil
}

func (l *Library) ValidateOwnership(albumID, owner string) (bool, error) {
	a, err := db.GetAlbum(l.DB, albumID, owner)
	if err != nil {
		return false, apperr.Infra("load album", err)
	}
	return a != nil, nil
}

// RecordUpload inserts the row for a file that is already on disk.
func (l *Library) RecordUpload(owner, albumID, storageName, originalName string, size int64) (*model.Photo, error) {
	path, err := l.Alloc.PhotoPath(owner, storageName)
	if err != nil {
		return nil, err
	}
	w, h := imaging.Probe(path)

	p := &model.Photo{
		ID:           uuid.NewString(),
		UserID:       owner,
		AlbumID:      albumID,
		Filename:     storageName,
		OriginalName: originalName,
		FileSize:     size,
		Width:        w,
		Height:       h,
		UploadedAt:   l.Now(),
	}
	if err := db.CreatePhoto(l.DB, p); err != nil {
		return nil, apperr.Infra("insert photo", err)
	}
	return p, nil
}

// Upload validates, stores and records one file. On any failure after the
// file was written the file is removed again.
func (l *Library) Upload(owner string, r io.Reader, c upload.Candidate) (*model.Photo, error) {
	acc, err := l.Validator.Validate(owner, c)
	if err != nil {
		return nil, err
	}
	if l.Space != nil && l.Space.Full() {
		return nil, apperr.Infra("store upload", errors.New("data volume is full"))
	}

	dir, err := l.Alloc.UploadDir(owner)
	if err != nil {
		return nil, err
	}
	name := storage.StorageName(acc.OriginalName, l.Now())
	path := filepath.Join(dir, name)

	written, err := writeNew(path, r, l.Validator.MaxBytes)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	p, err := l.RecordUpload(owner, acc.AlbumID, name, filepath.Base(acc.OriginalName), written)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	slog.Info("photo uploaded", "user", owner, "photo", p.ID, "bytes", written)
	return p, nil
}

// writeNew copies at most limit bytes into a file that must not exist yet.
func writeNew(path string, r io.Reader, limit int64) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, apperr.Infra("create photo file", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.Validation, apperr.CodeTransferError, "upload did not complete", err)
	}
	if n > limit {
		return 0, &apperr.Error{Kind: apperr.Validation, Code: apperr.CodeSizeExceeded,
			Message: "file exceeds the upload limit", Limit: limit}
	}
	return n, nil
}

// ListByOwner returns photos newest first, optionally limited to one album.
func (l *Library) ListByOwner(owner, albumID string) ([]model.Photo, error) {
	photos, err := db.ListPhotos(l.DB, owner, albumID)
	if err != nil {
		return nil, apperr.Infra("list photos", err)
	}
	return photos, nil
}

func (l *Library) GetPhoto(owner, id string) (*model.Photo, error) {
	p, err := db.GetPhoto(l.DB, id, owner)
	if err != nil {
		return nil, apperr.Infra("load photo", err)
	}
	if p == nil {
		return nil, apperr.NotFoundf("photo not found")
	}
	return p, nil
}

// FilePath returns the live file for a stored photo.
func (l *Library) FilePath(p *model.Photo) (string, error) {
	return l.Alloc.PhotoPath(p.UserID, p.Filename)
}

// Delete removes a photo owned by owner together with its edit backup.
// Missing files do not block removal of the row.
func (l *Library) Delete(owner, id string) error {
	p, err := l.GetPhoto(owner, id)
	if err != nil {
		return err
	}

	if path, err := l.Alloc.PhotoPath(owner, p.Filename); err == nil {
		removeBestEffort(path, p.ID)
	}
	// The edit slot is cleared whether or not the row points at it.
	if path, err := l.Alloc.EditBackupPath(owner, p.Filename); err == nil {
		removeBestEffort(path, p.ID)
	}

	ok, err := db.DeletePhoto(l.DB, id, owner)
	if err != nil {
		return apperr.Infra("delete photo", err)
	}
	if !ok {
		return apperr.NotFoundf("photo not found")
	}
	return nil
}

func removeBestEffort(path, photoID string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("remove photo file", "photo", photoID, "path", path, "error", err)
	}
}

func cleanName(name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Invalid("name is required")
	}
	if len(name) > max {
		return "", apperr.Invalid(fmt.Sprintf("name must be at most %d characters", max))
	}
	return name, nil
}
