package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/imaging"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/upload"
)

const (
	multipartMemory = 8 << 20
	multipartSlack  = 1 << 20 // room for the other form fields
)

type apiPhoto struct {
	ID           string  `json:"id"`
	AlbumID      string  `json:"album_id"`
	Filename     string  `json:"filename"`
	OriginalName string  `json:"original_name"`
	FileSize     int64   `json:"file_size"`
	Width        *int    `json:"width"`
	Height       *int    `json:"height"`
	UploadedAt   string  `json:"uploaded_at"`
	EditedAt     *string `json:"edited_at"`
	HasBackup    bool    `json:"has_backup"`
	URL          string  `json:"url"`
}

func (h *Handler) photoToAPI(p *model.Photo) apiPhoto {
	return apiPhoto{
		ID:           p.ID,
		AlbumID:      p.AlbumID,
		Filename:     p.Filename,
		OriginalName: p.OriginalName,
		FileSize:     p.FileSize,
		Width:        p.Width,
		Height:       p.Height,
		UploadedAt:   formatTime(p.UploadedAt),
		EditedAt:     formatTimePtr(p.EditedAt),
		HasBackup:    p.BackupPath != nil,
		URL:          h.photoURL(p.UserID, p.Filename),
	}
}

func (h *Handler) photosToAPI(photos []model.Photo) []apiPhoto {
	out := make([]apiPhoto, 0, len(photos))
	for i := range photos {
		out = append(out, h.photoToAPI(&photos[i]))
	}
	return out
}

// readUpload parses the multipart "photo" field into a validator candidate.
// The caller closes the returned file.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, upload.Candidate, error) {
	limit := h.Cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, upload.Candidate{}, &apperr.Error{
				Kind:    apperr.Validation,
				Code:    apperr.CodeSizeExceeded,
				Message: "file is too large, the limit is " + humanize.IBytes(uint64(limit)),
				Limit:   limit,
			}
		}
		return nil, upload.Candidate{}, apperr.Wrap(apperr.Validation, apperr.CodeTransferError, "upload did not complete", err)
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, upload.Candidate{}, apperr.Invalid("no photo was uploaded")
	}
	if err != nil {
		return nil, upload.Candidate{}, apperr.Wrap(apperr.Validation, apperr.CodeTransferError, "upload did not complete", err)
	}
	return file, upload.Candidate{
		OriginalName: header.Filename,
		Size:         header.Size,
		AlbumID:      r.FormValue("album_id"),
	}, nil
}

func (h *Handler) PhotoList(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	photos, err := h.Library.ListByOwner(owner, r.URL.Query().Get("album_id"))
	if err != nil {
		webError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"photos": h.photosToAPI(photos), "count": len(photos)})
}

func (h *Handler) PhotoUpload(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	file, c, err := h.readUpload(w, r)
	if err != nil {
		webError(w, r, err)
		return
	}
	defer file.Close()

	p, err := h.Library.Upload(owner, file, c)
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusCreated, "Photo uploaded successfully!", map[string]any{
		"photo_id": p.ID,
		"url":      h.photoURL(owner, p.Filename),
	})
}

func (h *Handler) PhotoDelete(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	if err := h.Library.Delete(owner, chi.URLParam(r, "id")); err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "Photo deleted successfully!", nil)
}

func (h *Handler) PhotoResize(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	width, errW := strconv.Atoi(r.FormValue("width"))
	height, errH := strconv.Atoi(r.FormValue("height"))
	if errW != nil || errH != nil {
		webError(w, r, apperr.Invalid("width and height must be whole numbers"))
		return
	}
	mode, err := imaging.ParseResizeMode(r.FormValue("mode"))
	if err != nil {
		webError(w, r, err)
		return
	}
	p, err := h.Engine.Resize(owner, chi.URLParam(r, "id"), width, height, mode)
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "Photo resized successfully!", map[string]any{"photo": h.photoToAPI(p)})
}

func (h *Handler) PhotoRotate(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	angle, err := strconv.ParseFloat(r.FormValue("angle"), 64)
	if err != nil {
		webError(w, r, apperr.Invalid("angle must be a number of degrees"))
		return
	}
	p, err := h.Engine.Rotate(owner, chi.URLParam(r, "id"), angle)
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "Photo rotated successfully!", map[string]any{"photo": h.photoToAPI(p)})
}

func (h *Handler) PhotoRestore(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	p, err := h.Engine.Restore(owner, chi.URLParam(r, "id"))
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "Photo restored to the version before the last edit.", map[string]any{"photo": h.photoToAPI(p)})
}
