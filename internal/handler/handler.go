// Package handler exposes the photo library over HTTP: the bearer-token REST
// API under /api/v1, the session web surface, share links and media files.
package handler

import (
	"database/sql"
	"strings"
	"time"

	"github.com/YannKr/photoalbum/internal/backup"
	"github.com/YannKr/photoalbum/internal/config"
	"github.com/YannKr/photoalbum/internal/gateway"
	"github.com/YannKr/photoalbum/internal/imaging"
	"github.com/YannKr/photoalbum/internal/library"
	"github.com/YannKr/photoalbum/internal/sse"
)

type Handler struct {
	DB      *sql.DB
	Cfg     *config.Config
	Library *library.Library
	Engine  *imaging.Engine
	Backups *backup.Builder
	Gateway *gateway.Gateway
	SSE     *sse.Hub
	Now     func() time.Time
}

func New(database *sql.DB, cfg *config.Config, lib *library.Library, engine *imaging.Engine,
	backups *backup.Builder, gw *gateway.Gateway, sseHub *sse.Hub) *Handler {
	return &Handler{
		DB:      database,
		Cfg:     cfg,
		Library: lib,
		Engine:  engine,
		Backups: backups,
		Gateway: gw,
		SSE:     sseHub,
		Now:     time.Now,
	}
}

func (h *Handler) secureCookies() bool {
	return strings.HasPrefix(h.Cfg.BaseURL, "https")
}

// photoURL is the public address of a stored photo file.
func (h *Handler) photoURL(owner, storageName string) string {
	return h.Cfg.BaseURL + "/uploads/" + owner + "/" + storageName
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
