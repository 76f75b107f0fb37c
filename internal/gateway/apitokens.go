package gateway

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
)

// IssueAPIToken creates a token for owner and returns its plaintext, which is
// not recoverable afterwards.
func (g *Gateway) IssueAPIToken(owner, label string, perms model.Permissions, expiryDays *int) (string, *model.APIToken, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", nil, apperr.Invalid("token name is required")
	}
	if perms == 0 {
		return "", nil, apperr.Invalid("select at least one permission")
	}

	user, err := db.GetUserByID(g.DB, owner)
	if err != nil {
		return "", nil, apperr.Infra("load user", err)
	}
	if user == nil {
		return "", nil, apperr.New(apperr.Auth, apperr.CodeInvalidCredentials, "unknown user")
	}
	if !user.APIEnabled {
		return "", nil, apperr.New(apperr.Permission, apperr.CodeForbidden, "API access is disabled for this account")
	}

	now := g.Now()
	expiresAt, err := expiryFrom(now, expiryDays)
	if err != nil {
		return "", nil, err
	}
	secret, err := newToken()
	if err != nil {
		return "", nil, err
	}
	plaintext := APITokenPrefix + secret

	t := &model.APIToken{
		ID:          uuid.NewString(),
		UserID:      owner,
		Name:        label,
		Prefix:      plaintext[:len(APITokenPrefix)+displayPrefix],
		Hash:        auth.HashToken(plaintext),
		Permissions: perms,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	if err := db.CreateAPIToken(g.DB, t); err != nil {
		return "", nil, apperr.Infra("insert api token", err)
	}
	return plaintext, t, nil
}

// ValidateAPIToken resolves a bearer token to its owner and grants, stamping
// last_used_at in the same statement.
func (g *Gateway) ValidateAPIToken(token string) (auth.Principal, error) {
	invalid := apperr.New(apperr.Auth, apperr.CodeInvalidToken, "invalid or expired API token")
	if token == "" {
		return auth.Principal{}, invalid
	}
	t, err := db.TouchAPIToken(g.DB, auth.HashToken(token), g.Now())
	if err != nil {
		return auth.Principal{}, apperr.Infra("validate api token", err)
	}
	if t == nil {
		return auth.Principal{}, invalid
	}
	user, err := db.GetUserByID(g.DB, t.UserID)
	if err != nil {
		return auth.Principal{}, apperr.Infra("load token owner", err)
	}
	if user == nil {
		return auth.Principal{}, invalid
	}
	return auth.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Permissions: t.Permissions,
		ViaToken:    true,
	}, nil
}

func (g *Gateway) ListAPITokens(owner string) ([]model.APIToken, error) {
	tokens, err := db.ListAPITokens(g.DB, owner)
	if err != nil {
		return nil, apperr.Infra("list api tokens", err)
	}
	return tokens, nil
}

func (g *Gateway) RevokeAPIToken(owner, id string) error {
	ok, err := db.DeleteAPIToken(g.DB, id, owner)
	if err != nil {
		return apperr.Infra("delete api token", err)
	}
	if !ok {
		return apperr.NotFoundf("API token not found")
	}
	return nil
}

func purgeTokens(database *sql.DB, now time.Time) (int64, error) {
	return db.DeleteExpiredAPITokens(database, now)
}
