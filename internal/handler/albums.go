package handler

import (
	"net/http"

	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/model"
)

type apiAlbum struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	CategoryID    *string `json:"category_id"`
	CategoryName  string  `json:"category_name,omitempty"`
	CategoryColor string  `json:"category_color,omitempty"`
	PhotoCount    int     `json:"photo_count"`
	CreatedAt     string  `json:"created_at"`
}

type apiCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	CreatedAt   string `json:"created_at"`
}

func albumsToAPI(albums []model.Album) []apiAlbum {
	out := make([]apiAlbum, 0, len(albums))
	for _, a := range albums {
		out = append(out, apiAlbum{
			ID:            a.ID,
			Name:          a.Name,
			Description:   a.Description,
			CategoryID:    a.CategoryID,
			CategoryName:  a.CategoryName,
			CategoryColor: a.CategoryColor,
			PhotoCount:    a.PhotoCount,
			CreatedAt:     formatTime(a.CreatedAt),
		})
	}
	return out
}

func categoriesToAPI(cats []model.Category) []apiCategory {
	out := make([]apiCategory, 0, len(cats))
	for _, c := range cats {
		out = append(out, apiCategory{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
			CreatedAt:   formatTime(c.CreatedAt),
		})
	}
	return out
}

func (h *Handler) AlbumList(w http.ResponseWriter, r *http.Request) {
	albums, err := h.Library.ListAlbums(auth.UserFromContext(r.Context()))
	if err != nil {
		webError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"albums": albumsToAPI(albums), "count": len(albums)})
}

func (h *Handler) AlbumCreate(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	a, err := h.Library.CreateAlbum(owner, r.FormValue("name"), r.FormValue("category_id"), r.FormValue("description"))
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusCreated, "Album created successfully!", map[string]any{"album_id": a.ID})
}

func (h *Handler) CategoryList(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Library.ListCategories(auth.UserFromContext(r.Context()))
	if err != nil {
		webError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"categories": categoriesToAPI(cats), "count": len(cats)})
}

func (h *Handler) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	c, err := h.Library.CreateCategory(owner, r.FormValue("name"), r.FormValue("description"), r.FormValue("color"))
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusCreated, "Category created successfully!", map[string]any{"category_id": c.ID})
}
