// Package upload checks an inbound file before anything is written.
package upload

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/storage"
)

// AlbumResolver is the part of the photo library the validator depends on.
type AlbumResolver interface {
	ValidateOwnership(albumID, owner string) (bool, error)
	EnsureOwnerHasAlbum(owner string) (string, error)
}

// Candidate describes a file as received by the transport.
type Candidate struct {
	OriginalName string
	Size         int64
	TransferErr  error  // non-nil when the transport reported a problem
	AlbumID      string // requested album, may be empty
}

// Accepted is a candidate that passed every check.
type Accepted struct {
	OriginalName string
	Size         int64
	Ext          string
	AlbumID      string
}

type Validator struct {
	MaxBytes int64
	Allowed  map[string]bool
	Albums   AlbumResolver
}

func NewValidator(maxBytes int64, allowed []string, albums AlbumResolver) *Validator {
	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[ext] = true
	}
	return &Validator{MaxBytes: maxBytes, Allowed: set, Albums: albums}
}

// Validate applies the transfer, size, type and album checks in that order.
// Only the album fallback may write (it can create default entities), and it
// runs after the file itself has been accepted.
func (v *Validator) Validate(owner string, c Candidate) (*Accepted, error) {
	if c.TransferErr != nil {
		return nil, apperr.Wrap(apperr.Validation, apperr.CodeTransferError, "upload did not complete", c.TransferErr)
	}

	if c.Size > v.MaxBytes {
		return nil, &apperr.Error{
			Kind:    apperr.Validation,
			Code:    apperr.CodeSizeExceeded,
			Message: fmt.Sprintf("file is larger than %s", humanize.IBytes(uint64(v.MaxBytes))),
			Limit:   v.MaxBytes,
		}
	}

	ext := storage.Extension(c.OriginalName)
	if !v.Allowed[ext] {
		return nil, apperr.New(apperr.Validation, apperr.CodeUnsupportedType,
			fmt.Sprintf("file type %q is not allowed", ext))
	}

	albumID, err := v.resolveAlbum(owner, c.AlbumID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, apperr.CodeNoAlbumAvailable, "no album available", err)
	}

	return &Accepted{OriginalName: c.OriginalName, Size: c.Size, Ext: ext, AlbumID: albumID}, nil
}

func (v *Validator) resolveAlbum(owner, albumID string) (string, error) {
	if albumID != "" {
		ok, err := v.Albums.ValidateOwnership(albumID, owner)
		if err != nil {
			return "", err
		}
		if ok {
			return albumID, nil
		}
	}
	id, err := v.Albums.EnsureOwnerHasAlbum(owner)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("fallback returned no album")
	}
	return id, nil
}
