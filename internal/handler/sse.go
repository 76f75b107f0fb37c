package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/worker"
)

// BackupSSE streams backup_status events for one of the caller's backups.
// A backup that is already terminal gets its status once and the stream ends.
func (h *Handler) BackupSSE(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	owner := auth.UserFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		webError(w, r, apperr.Infra("stream backup status", fmt.Errorf("streaming not supported")))
		return
	}

	// Subscribe before reading the row so a completion in between is not lost.
	ch, unsub := h.SSE.Subscribe(worker.BackupTopic(id))
	defer unsub()

	bk, err := h.Backups.Get(owner, id)
	if err != nil {
		webError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	if bk.Status != model.BackupPending {
		data, _ := json.Marshal(worker.BackupEvent{
			BackupID:    bk.ID,
			Status:      bk.Status,
			PhotosCount: bk.PhotosCount,
			FileSize:    bk.FileSize,
			Error:       bk.ErrorMessage,
		})
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", worker.EventBackupStatus, data)
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
			flusher.Flush()
			if evt.Type == worker.EventBackupStatus {
				return
			}
		}
	}
}
