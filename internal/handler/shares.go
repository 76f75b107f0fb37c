package handler

import (
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/model"
)

type apiShare struct {
	ID             string  `json:"id"`
	PhotoID        string  `json:"photo_id"`
	PhotoName      string  `json:"photo_name,omitempty"`
	ShareType      string  `json:"share_type"`
	SharedWith     *string `json:"shared_with"`
	SharedWithName string  `json:"shared_with_name,omitempty"`
	Token          string  `json:"token"`
	URL            string  `json:"url"`
	ExpiresAt      *string `json:"expires_at"`
	CreatedAt      string  `json:"created_at"`
}

func (h *Handler) shareToAPI(s *model.ShareLink) apiShare {
	return apiShare{
		ID:             s.ID,
		PhotoID:        s.PhotoID,
		PhotoName:      s.PhotoName,
		ShareType:      string(s.Mode),
		SharedWith:     s.SharedWith,
		SharedWithName: s.SharedWithName,
		Token:          s.Token,
		URL:            h.Cfg.BaseURL + "/s/" + s.Token,
		ExpiresAt:      formatTimePtr(s.ExpiresAt),
		CreatedAt:      formatTime(s.CreatedAt),
	}
}

// optionalDays parses an optional positive day count.
func optionalDays(v string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return nil, apperr.Invalid("expiry must be a whole number of days")
	}
	return &n, nil
}

func (h *Handler) ShareList(w http.ResponseWriter, r *http.Request) {
	shares, err := h.Gateway.ListShareLinks(auth.UserFromContext(r.Context()))
	if err != nil {
		webError(w, r, err)
		return
	}
	out := make([]apiShare, 0, len(shares))
	for i := range shares {
		out = append(out, h.shareToAPI(&shares[i]))
	}
	renderJSON(w, http.StatusOK, map[string]any{"shares": out, "count": len(out)})
}

func (h *Handler) ShareCreate(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	days, err := optionalDays(r.FormValue("expires_days"))
	if err != nil {
		webError(w, r, err)
		return
	}
	mode := model.ShareMode(r.FormValue("share_type"))
	if mode == "" {
		mode = model.SharePublic
	}
	s, err := h.Gateway.IssueShareLink(owner, r.FormValue("photo_id"), mode, days, r.FormValue("shared_with"))
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusCreated, "Photo shared successfully!", map[string]any{"share": h.shareToAPI(s)})
}

func (h *Handler) ShareDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Gateway.DeleteShareLink(auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "Share removed.", nil)
}

// ShareView: GET /s/{token}
func (h *Handler) ShareView(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	sp, err := h.Gateway.ResolveShareLink(token, auth.UserFromContext(r.Context()))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"photo": map[string]any{
			"id":            sp.Photo.ID,
			"original_name": sp.Photo.OriginalName,
			"file_size":     sp.Photo.FileSize,
			"width":         sp.Photo.Width,
			"height":        sp.Photo.Height,
			"uploaded_at":   formatTime(sp.Photo.UploadedAt),
		},
		"owner":      sp.OwnerUsername,
		"share_type": string(sp.Link.Mode),
		"shared_at":  formatTime(sp.Link.CreatedAt),
		"expires_at": formatTimePtr(sp.Link.ExpiresAt),
		"file_url":   h.Cfg.BaseURL + "/s/" + token + "/file",
	})
}

// ShareFile: GET /s/{token}/file
func (h *Handler) ShareFile(w http.ResponseWriter, r *http.Request) {
	sp, err := h.Gateway.ResolveShareLink(chi.URLParam(r, "token"), auth.UserFromContext(r.Context()))
	if err != nil {
		apiError(w, r, err)
		return
	}
	path, err := h.Library.FilePath(sp.Photo)
	if err != nil {
		apiError(w, r, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		apiError(w, r, apperr.NotFoundf("photo file is missing"))
		return
	}
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("inline", map[string]string{"filename": sp.Photo.OriginalName}))
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeFile(w, r, path)
}

// MediaFile: GET /uploads/{owner}/{file}
func (h *Handler) MediaFile(w http.ResponseWriter, r *http.Request) {
	path, err := h.Library.Alloc.PhotoPath(chi.URLParam(r, "owner"), chi.URLParam(r, "file"))
	if err != nil {
		renderJSONError(w, http.StatusNotFound, apperr.CodeNotFound, "not found")
		return
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		renderJSONError(w, http.StatusNotFound, apperr.CodeNotFound, "not found")
		return
	}
	http.ServeFile(w, r, path)
}
