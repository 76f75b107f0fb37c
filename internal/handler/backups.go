package handler

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/worker"
)

type apiBackup struct {
	ID           string  `json:"id"`
	Type         string  `json:"backup_type"`
	Status       string  `json:"status"`
	Filename     string  `json:"filename"`
	FileSize     int64   `json:"file_size"`
	Size         string  `json:"size"`
	PhotosCount  int     `json:"photos_count"`
	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at"`
}

func backupToAPI(b *model.Backup) apiBackup {
	return apiBackup{
		ID:           b.ID,
		Type:         string(b.Type),
		Status:       string(b.Status),
		Filename:     filepath.Base(b.FilePath),
		FileSize:     b.FileSize,
		Size:         humanize.IBytes(uint64(b.FileSize)),
		PhotosCount:  b.PhotosCount,
		ErrorMessage: b.ErrorMessage,
		CreatedAt:    formatTime(b.CreatedAt),
		CompletedAt:  formatTimePtr(b.CompletedAt),
	}
}

func (h *Handler) BackupList(w http.ResponseWriter, r *http.Request) {
	backups, err := h.Backups.List(auth.UserFromContext(r.Context()))
	if err != nil {
		webError(w, r, err)
		return
	}
	out := make([]apiBackup, 0, len(backups))
	for i := range backups {
		out = append(out, backupToAPI(&backups[i]))
	}
	renderJSON(w, http.StatusOK, map[string]any{"backups": out, "count": len(out)})
}

// BackupCreate builds a manual backup within the request, or queues it when
// BACKUP_ASYNC is set and answers 202 with the pending backup id.
func (h *Handler) BackupCreate(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())

	if h.Cfg.BackupAsync {
		bk, err := h.Backups.Begin(owner, model.BackupManual)
		if err != nil {
			webError(w, r, err)
			return
		}
		if _, err := worker.EnqueueBackup(h.DB, bk); err != nil {
			webError(w, r, apperr.Infra("queue backup", err))
			return
		}
		webOK(w, http.StatusAccepted, "Backup started.", map[string]any{
			"backup_id":  bk.ID,
			"status":     string(model.BackupPending),
			"events_url": "/backups/" + bk.ID + "/events",
		})
		return
	}

	bk, err := h.Backups.Create(r.Context(), owner, model.BackupManual)
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusCreated, "Backup created successfully! "+humanize.Comma(int64(bk.PhotosCount))+" photos, "+
		humanize.IBytes(uint64(bk.FileSize))+".", map[string]any{"backup": backupToAPI(bk)})
}

func (h *Handler) BackupDownload(w http.ResponseWriter, r *http.Request) {
	bk, err := h.Backups.Open(auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		webError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(bk.FilePath)}))
	http.ServeFile(w, r, bk.FilePath)
}

func (h *Handler) BackupDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Backups.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "Backup deleted successfully!", nil)
}
