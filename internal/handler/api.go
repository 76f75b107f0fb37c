package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
)

// APIPhotoList: GET /api/v1/photos
func (h *Handler) APIPhotoList(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	photos, err := h.Library.ListByOwner(owner, r.URL.Query().Get("album_id"))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"photos": h.photosToAPI(photos), "count": len(photos)})
}

// APIPhotoGet: GET /api/v1/photos/{id}
func (h *Handler) APIPhotoGet(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	p, err := h.Library.GetPhoto(owner, chi.URLParam(r, "id"))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, h.photoToAPI(p))
}

// APIPhotoUpload: POST /api/v1/photos
func (h *Handler) APIPhotoUpload(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	file, c, err := h.readUpload(w, r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	defer file.Close()

	p, err := h.Library.Upload(owner, file, c)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, map[string]any{
		"message":  "Photo uploaded successfully",
		"photo_id": p.ID,
		"url":      h.photoURL(owner, p.Filename),
	})
}

// APIPhotoDelete: DELETE /api/v1/photos/{id}
func (h *Handler) APIPhotoDelete(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	if err := h.Library.Delete(owner, chi.URLParam(r, "id")); err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"message": "Photo deleted successfully"})
}

// APIAlbumList: GET /api/v1/albums
func (h *Handler) APIAlbumList(w http.ResponseWriter, r *http.Request) {
	albums, err := h.Library.ListAlbums(auth.UserFromContext(r.Context()))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"albums": albumsToAPI(albums), "count": len(albums)})
}

// APIAlbumCreate: POST /api/v1/albums
func (h *Handler) APIAlbumCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		CategoryID  string `json:"category_id"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		apiError(w, r, apperr.Invalid("invalid JSON body"))
		return
	}
	owner := auth.UserFromContext(r.Context())
	a, err := h.Library.CreateAlbum(owner, req.Name, req.CategoryID, req.Description)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, map[string]any{"message": "Album created successfully", "album_id": a.ID})
}

// APICategoryList: GET /api/v1/categories
func (h *Handler) APICategoryList(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Library.ListCategories(auth.UserFromContext(r.Context()))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"categories": categoriesToAPI(cats), "count": len(cats)})
}
