package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/csrf"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/model"
)

func (h *Handler) Routes(authRL *RateLimiter) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderJSONError(w, http.StatusNotFound, apperr.CodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	// JSON REST API v1: bearer token auth, open CORS, per-IP limit.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", altAuthHeader, "Content-Type"},
			MaxAge:         300,
		}))
		r.Use(httprate.Limit(h.Cfg.APIRatePerMin, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				renderJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			}),
		))

		r.Group(func(r chi.Router) {
			r.Use(h.requireAPIAuth)

			r.With(requirePerm(model.PermRead)).Get("/photos", h.APIPhotoList)
			r.With(requirePerm(model.PermRead)).Get("/photos/{id}", h.APIPhotoGet)
			r.With(requirePerm(model.PermUpload)).Post("/photos", h.APIPhotoUpload)
			r.With(requirePerm(model.PermDelete)).Delete("/photos/{id}", h.APIPhotoDelete)

			r.With(requirePerm(model.PermRead)).Get("/albums", h.APIAlbumList)
			r.With(requirePerm(model.PermAlbums)).Post("/albums", h.APIAlbumCreate)

			r.With(requirePerm(model.PermRead)).Get("/categories", h.APICategoryList)
		})
	})

	// Public share links and media files. A session, if present, identifies
	// the recipient of a private share.
	r.Group(func(r chi.Router) {
		r.Use(h.LoadSession)
		r.Get("/s/{token}", h.ShareView)
		r.Get("/s/{token}/file", h.ShareFile)
	})
	r.Get("/uploads/{owner}/{file}", h.MediaFile)

	// Session web surface, CSRF protected.
	csrfProtect := csrf.Protect(
		[]byte(h.Cfg.SessionSecret),
		csrf.Secure(h.secureCookies()),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			webError(w, r, apperr.New(apperr.Permission, apperr.CodeForbidden, "invalid CSRF token"))
		})),
	)
	r.Group(func(r chi.Router) {
		r.Use(csrfProtect)

		r.Get("/session", h.Session)

		r.Group(func(r chi.Router) {
			r.Use(authRL.Middleware)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)

			r.Post("/logout", h.Logout)

			r.Get("/photos", h.PhotoList)
			r.Post("/photos", h.PhotoUpload)
			r.Post("/photos/{id}/delete", h.PhotoDelete)
			r.Post("/photos/{id}/resize", h.PhotoResize)
			r.Post("/photos/{id}/rotate", h.PhotoRotate)
			r.Post("/photos/{id}/restore", h.PhotoRestore)

			r.Get("/albums", h.AlbumList)
			r.Post("/albums", h.AlbumCreate)
			r.Get("/categories", h.CategoryList)
			r.Post("/categories", h.CategoryCreate)

			r.Get("/shares", h.ShareList)
			r.Post("/shares", h.ShareCreate)
			r.Post("/shares/{id}/delete", h.ShareDelete)

			r.Get("/backups", h.BackupList)
			r.Post("/backups", h.BackupCreate)
			r.Get("/backups/{id}/download", h.BackupDownload)
			r.Get("/backups/{id}/events", h.BackupSSE)
			r.Post("/backups/{id}/delete", h.BackupDelete)

			r.Get("/tokens", h.TokenList)
			r.Post("/tokens", h.TokenCreate)
			r.Post("/tokens/{id}/delete", h.TokenDelete)

			r.Post("/settings/api", h.SettingsAPI)
			r.Post("/settings/backup", h.SettingsBackup)
		})
	})

	return r
}
