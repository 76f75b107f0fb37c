package handler

import (
	"net/http"
	"strings"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
)

// altAuthHeader carries the bearer token for clients whose proxies strip
// Authorization.
const altAuthHeader = "X-Authorization"

var sessionPermissions = model.NewPermissions(model.AllPermissions...)

// sessionPrincipal resolves the signed session cookie, if any.
func (h *Handler) sessionPrincipal(r *http.Request) (auth.Principal, bool) {
	sessionID, ok := auth.GetSessionID(r, h.Cfg.SessionSecret)
	if !ok {
		return auth.Principal{}, false
	}
	session, err := db.GetSession(h.DB, sessionID)
	if err != nil || session == nil || !session.ExpiresAt.After(h.Now()) {
		return auth.Principal{}, false
	}
	user, err := db.GetUserByID(h.DB, session.UserID)
	if err != nil || user == nil {
		return auth.Principal{}, false
	}
	return auth.Principal{UserID: user.ID, Username: user.Username, Permissions: sessionPermissions}, true
}

// LoadSession attaches the session principal when there is one and lets
// anonymous requests through.
func (h *Handler) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := h.sessionPrincipal(r); ok {
			r = r.WithContext(auth.ContextWithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.sessionPrincipal(r)
		if !ok {
			auth.ClearSessionCookie(w)
			webError(w, r, apperr.New(apperr.Auth, apperr.CodeInvalidCredentials, "please log in"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
	})
}

// bearerToken reads "Bearer <token>" from Authorization or the alternate
// header. The scheme is case-insensitive.
func bearerToken(r *http.Request) string {
	for _, name := range []string{"Authorization", altAuthHeader} {
		v := strings.TrimSpace(r.Header.Get(name))
		scheme, token, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	return ""
}

func (h *Handler) requireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			renderJSONError(w, http.StatusUnauthorized, apperr.CodeInvalidToken, "missing API token")
			return
		}
		p, err := h.Gateway.ValidateAPIToken(token)
		if err != nil {
			apiError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
	})
}

// requirePerm rejects principals lacking perm. Grants never imply each other.
func requirePerm(perm model.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := auth.PrincipalFromContext(r.Context())
			if !p.Can(perm) {
				renderJSONError(w, http.StatusForbidden, apperr.CodeInsufficientPermission,
					"token lacks the "+perm.String()+" permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
