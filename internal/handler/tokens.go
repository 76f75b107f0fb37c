package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/model"
)

type apiToken struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Prefix      string            `json:"prefix"`
	Permissions model.Permissions `json:"permissions"`
	ExpiresAt   *string           `json:"expires_at"`
	LastUsedAt  *string           `json:"last_used_at"`
	CreatedAt   string            `json:"created_at"`
}

func tokenToAPI(t *model.APIToken) apiToken {
	return apiToken{
		ID:          t.ID,
		Name:        t.Name,
		Prefix:      t.Prefix,
		Permissions: t.Permissions,
		ExpiresAt:   formatTimePtr(t.ExpiresAt),
		LastUsedAt:  formatTimePtr(t.LastUsedAt),
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

func (h *Handler) TokenList(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.Gateway.ListAPITokens(auth.UserFromContext(r.Context()))
	if err != nil {
		webError(w, r, err)
		return
	}
	out := make([]apiToken, 0, len(tokens))
	for i := range tokens {
		out = append(out, tokenToAPI(&tokens[i]))
	}
	renderJSON(w, http.StatusOK, map[string]any{"tokens": out, "count": len(out)})
}

// TokenCreate issues an API token. The plaintext is in this response only.
func (h *Handler) TokenCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		webError(w, r, apperr.Invalid("invalid form"))
		return
	}
	perms, err := model.ParsePermissions(r.Form["permissions"])
	if err != nil {
		webError(w, r, apperr.Invalid(err.Error()))
		return
	}
	days, err := optionalDays(r.FormValue("expires_days"))
	if err != nil {
		webError(w, r, err)
		return
	}

	plain, t, err := h.Gateway.IssueAPIToken(auth.UserFromContext(r.Context()), r.FormValue("name"), perms, days)
	if err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusCreated, "API token created. Copy it now, it will not be shown again.", map[string]any{
		"token":     plain,
		"api_token": tokenToAPI(t),
	})
}

func (h *Handler) TokenDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Gateway.RevokeAPIToken(auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		webError(w, r, err)
		return
	}
	webOK(w, http.StatusOK, "API token deleted.", nil)
}
