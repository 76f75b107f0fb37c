// Package imaging edits stored photos in place. Every successful edit leaves
// the pre-edit file in the photo's backup slot.
package imaging

import (
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/gift"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/storage"
)

const (
	jpegQuality = 85
	maxSide     = 10000
)

type ResizeMode int

const (
	// ResizeExact stretches to exactly the requested size.
	ResizeExact ResizeMode = iota
	// ResizeFit keeps the aspect ratio inside the requested box.
	ResizeFit
)

func ParseResizeMode(s string) (ResizeMode, error) {
	switch s {
	case "", "exact":
		return ResizeExact, nil
	case "fit":
		return ResizeFit, nil
	}
	return 0, apperr.Invalid(fmt.Sprintf("unknown resize mode %q", s))
}

type Engine struct {
	DB    *sql.DB
	Alloc *storage.Allocator
	Now   func() time.Time
}

func New(database *sql.DB, alloc *storage.Allocator) *Engine {
	return &Engine{DB: database, Alloc: alloc, Now: time.Now}
}

func (e *Engine) Resize(owner, photoID string, width, height int, mode ResizeMode) (*model.Photo, error) {
	if width < 1 || height < 1 || width > maxSide || height > maxSide {
		return nil, apperr.Invalid(fmt.Sprintf("dimensions must be between 1 and %d pixels", maxSide))
	}
	filter := gift.Resize(width, height, gift.LanczosResampling)
	if mode == ResizeFit {
		filter = gift.ResizeToFit(width, height, gift.LanczosResampling)
	}
	return e.transform(owner, photoID, filter)
}

// Rotate turns the photo clockwise by degrees. Negative values rotate
// counter-clockwise.
func (e *Engine) Rotate(owner, photoID string, degrees float64) (*model.Photo, error) {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, apperr.Invalid("invalid rotation angle")
	}
	return e.transform(owner, photoID, rotateFilter(degrees))
}

// rotateFilter converts a clockwise angle into gift's counter-clockwise
// filters. Right angles use the lossless filters.
func rotateFilter(clockwise float64) gift.Filter {
	ccw := math.Mod(-clockwise, 360)
	if ccw < 0 {
		ccw += 360
	}
	switch ccw {
	case 0:
		return nil
	case 90:
		return gift.Rotate90()
	case 180:
		return gift.Rotate180()
	case 270:
		return gift.Rotate270()
	}
	return gift.Rotate(float32(ccw), color.Transparent, gift.CubicInterpolation)
}

// Restore puts the pre-edit copy back in place of the live file.
func (e *Engine) Restore(owner, photoID string) (*model.Photo, error) {
	p, live, err := e.load(owner, photoID)
	if err != nil {
		return nil, err
	}
	if p.BackupPath == nil {
		return nil, apperr.NotFoundf("photo has no edit backup")
	}
	backup, err := e.Alloc.EditBackupPath(owner, p.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(backup); err != nil {
		return nil, apperr.NotFoundf("edit backup is missing")
	}

	if err := copyFileAtomic(backup, live); err != nil {
		return nil, apperr.Infra("restore edit backup", err)
	}

	p.Width, p.Height = Probe(live)
	if fi, err := os.Stat(live); err == nil {
		p.FileSize = fi.Size()
	}
	p.BackupPath = nil
	now := e.Now()
	if err := db.UpdatePhotoEdit(e.DB, p, now); err != nil {
		return nil, apperr.Infra("record restore", err)
	}
	p.EditedAt = &now

	if err := os.Remove(backup); err != nil {
		slog.Warn("imaging: remove used edit backup", "photo", p.ID, "error", err)
	}
	return p, nil
}

func (e *Engine) load(owner, photoID string) (*model.Photo, string, error) {
	p, err := db.GetPhoto(e.DB, photoID, owner)
	if err != nil {
		return nil, "", apperr.Infra("load photo", err)
	}
	if p == nil {
		return nil, "", apperr.NotFoundf("photo not found")
	}
	live, err := e.Alloc.PhotoPath(owner, p.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(live); err != nil {
		return nil, "", apperr.NotFoundf("photo file is missing")
	}
	return p, live, nil
}

func (e *Engine) transform(owner, photoID string, filter gift.Filter) (*model.Photo, error) {
	p, live, err := e.load(owner, photoID)
	if err != nil {
		return nil, err
	}
	hadBackup := p.BackupPath != nil

	backup, err := e.Alloc.EditBackupPath(owner, p.Filename)
	if err != nil {
		return nil, err
	}

	src, format, err := decodeFile(live)
	if err != nil {
		return nil, apperr.Wrap(apperr.ImageProcessing, apperr.CodeImageProcessing, "could not decode image", err)
	}

	var filters []gift.Filter
	if filter != nil {
		filters = append(filters, filter)
	}
	g := gift.New(filters...)
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	// The pre-edit copy only takes the backup slot once the live file has
	// been rewritten; until then the slot keeps whatever it held.
	staged, err := stageCopy(live, backup)
	if err != nil {
		return nil, apperr.Infra("write edit backup", err)
	}
	defer os.Remove(staged)

	if err := encodeFileAtomic(live, dst, format, paletteOf(src)); err != nil {
		return nil, err
	}
	if err := os.Rename(staged, backup); err != nil {
		if rerr := copyFileAtomic(staged, live); rerr != nil {
			slog.Error("imaging: roll back live file", "photo", p.ID, "error", rerr)
		}
		return nil, apperr.Infra("write edit backup", err)
	}

	p.Width, p.Height = Probe(live)
	if fi, err := os.Stat(live); err == nil {
		p.FileSize = fi.Size()
	}
	p.BackupPath = &backup
	now := e.Now()
	if err := db.UpdatePhotoEdit(e.DB, p, now); err != nil {
		if rerr := copyFileAtomic(backup, live); rerr != nil {
			slog.Error("imaging: roll back live file", "photo", p.ID, "error", rerr)
		}
		if !hadBackup {
			os.Remove(backup)
		}
		return nil, apperr.Infra("record edit", err)
	}
	p.EditedAt = &now
	return p, nil
}

func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

// encodeFileAtomic encodes img next to path and renames it over path, so a
// failed encode never leaves a truncated live file. GIFs are mapped onto pal
// when it is set, without dithering.
func encodeFileAtomic(path string, img image.Image, format string, pal color.Palette) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".edit-*")
	if err != nil {
		return apperr.Infra("create temp file", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return apperr.Infra("chmod temp file", err)
	}

	switch format {
	case "jpeg":
		err = jpeg.Encode(tmp, img, &jpeg.Options{Quality: jpegQuality})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(tmp, img)
	case "gif":
		if len(pal) > 0 {
			out := image.NewPaletted(img.Bounds(), pal)
			draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
			err = gif.Encode(tmp, out, nil)
		} else {
			err = gif.Encode(tmp, img, &gif.Options{NumColors: 256})
		}
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return apperr.Wrap(apperr.ImageProcessing, apperr.CodeImageProcessing, "could not encode image", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperr.Infra("replace live file", err)
	}
	return nil
}

// paletteOf returns the palette of a paletted image, or nil.
func paletteOf(img image.Image) color.Palette {
	if pi, ok := img.(*image.Paletted); ok {
		return pi.Palette
	}
	return nil
}

func copyFileAtomic(src, dst string) error {
	tmp, err := stageCopy(src, dst)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// stageCopy copies src into a temp file in dst's directory and returns its
// path. The caller renames or removes it.
func stageCopy(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return "", err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
