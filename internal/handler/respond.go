package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/YannKr/photoalbum/internal/apperr"
)

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write json response", "error", err)
	}
}

// renderJSONError writes the API error envelope.
func renderJSONError(w http.ResponseWriter, status int, code, msg string) {
	renderJSON(w, status, map[string]string{"error": msg, "code": code})
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Auth:
		return http.StatusUnauthorized
	case apperr.Permission:
		return http.StatusForbidden
	case apperr.NotFound:
		if apperr.Is(err, apperr.CodeExpired) {
			return http.StatusGone
		}
		return http.StatusNotFound
	case apperr.StateConflict:
		return http.StatusConflict
	case apperr.ImageProcessing:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// publicMessage hides infrastructure detail from clients.
func publicMessage(r *http.Request, err error) string {
	if apperr.KindOf(err) == apperr.Infrastructure {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		return "internal error"
	}
	if e := asAppErr(err); e != nil {
		return e.Message
	}
	return err.Error()
}

// apiError writes err as the API envelope with the status for its kind.
func apiError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := map[string]any{
		"error": publicMessage(r, err),
		"code":  apperr.CodeOf(err),
	}
	if e := asAppErr(err); e != nil && e.Limit > 0 {
		body["limit"] = e.Limit
	}
	renderJSON(w, status, body)
}

// webOK writes a success banner for the session surface. extra fields are
// merged into the body.
func webOK(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := map[string]any{"message": msg, "type": "success"}
	for k, v := range extra {
		body[k] = v
	}
	renderJSON(w, status, body)
}

func webError(w http.ResponseWriter, r *http.Request, err error) {
	renderJSON(w, statusFor(err), map[string]any{
		"message": publicMessage(r, err),
		"type":    "error",
		"code":    apperr.CodeOf(err),
	})
}

func asAppErr(err error) *apperr.Error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
