package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
)

const minPasswordLen = 6

// Session reports the CSRF token and, when logged in, who the caller is.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"csrf_token":    csrf.Token(r),
		"authenticated": false,
	}
	if p, ok := h.sessionPrincipal(r); ok {
		user, err := db.GetUserByID(h.DB, p.UserID)
		if err != nil {
			webError(w, r, apperr.Infra("load user", err))
			return
		}
		if user != nil {
			body["authenticated"] = true
			body["user_id"] = user.ID
			body["username"] = user.Username
			body["email"] = user.Email
			body["api_enabled"] = user.APIEnabled
			body["backup_enabled"] = user.BackupEnabled
		}
	}
	renderJSON(w, http.StatusOK, body)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	if username == "" || email == "" || password == "" || confirm == "" {
		webError(w, r, apperr.Invalid("all fields are required"))
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		webError(w, r, apperr.Invalid("invalid email address"))
		return
	}
	if len(password) < minPasswordLen {
		webError(w, r, apperr.Invalid("password must be at least 6 characters"))
		return
	}
	if password != confirm {
		webError(w, r, apperr.Invalid("passwords do not match"))
		return
	}

	taken, err := db.UsernameOrEmailTaken(h.DB, username, email)
	if err != nil {
		webError(w, r, apperr.Infra("check username", err))
		return
	}
	if taken {
		webError(w, r, apperr.New(apperr.StateConflict, apperr.CodeDuplicateName, "username or email already exists"))
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		webError(w, r, apperr.Infra("hash password", err))
		return
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    h.Now(),
	}
	if err := db.CreateUser(h.DB, user); err != nil {
		if db.IsUniqueViolation(err) {
			webError(w, r, apperr.New(apperr.StateConflict, apperr.CodeDuplicateName, "username or email already exists"))
			return
		}
		webError(w, r, apperr.Infra("create user", err))
		return
	}
	slog.Info("user registered", "user", user.ID, "username", username)
	webOK(w, http.StatusCreated, "Registration successful! Please log in.", map[string]any{"user_id": user.ID})
}

// Login accepts a username or an email address.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")
	if login == "" || password == "" {
		webError(w, r, apperr.Invalid("username and password are required"))
		return
	}

	user, err := db.GetUserByLogin(h.DB, login)
	if err != nil {
		webError(w, r, apperr.Infra("load user", err))
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		webError(w, r, apperr.New(apperr.Auth, apperr.CodeInvalidCredentials, "invalid username or password"))
		return
	}

	sessionID, err := auth.GenerateToken(32)
	if err != nil {
		webError(w, r, apperr.Infra("generate session", err))
		return
	}
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: h.Now().Add(auth.SessionMaxAge),
	}
	if err := db.CreateSession(h.DB, session); err != nil {
		webError(w, r, apperr.Infra("create session", err))
		return
	}

	// Accounts created before default albums existed get one here.
	if _, err := h.Library.EnsureOwnerHasAlbum(user.ID); err != nil {
		slog.Warn("login: ensure default album", "user", user.ID, "error", err)
	}

	auth.SetSessionCookie(w, sessionID, h.Cfg.SessionSecret, h.secureCookies())
	webOK(w, http.StatusOK, "Welcome back, "+user.Username+"!", map[string]any{"user_id": user.ID})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.GetSessionID(r, h.Cfg.SessionSecret); ok {
		if err := db.DeleteSession(h.DB, sessionID); err != nil {
			slog.Warn("logout: delete session", "error", err)
		}
	}
	auth.ClearSessionCookie(w)
	webOK(w, http.StatusOK, "You have been logged out.", nil)
}

func (h *Handler) SettingsAPI(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "API access", db.SetAPIEnabled)
}

func (h *Handler) SettingsBackup(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "Automatic backups", db.SetBackupEnabled)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, feature string, set func(*sql.DB, string, bool) error) {
	enabled, err := strconv.ParseBool(r.FormValue("enabled"))
	if err != nil {
		webError(w, r, apperr.Invalid("enabled must be true or false"))
		return
	}
	owner := auth.UserFromContext(r.Context())
	if err := set(h.DB, owner, enabled); err != nil {
		webError(w, r, apperr.Infra("update settings", err))
		return
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	webOK(w, http.StatusOK, feature+" "+state+".", map[string]any{"enabled": enabled})
}
