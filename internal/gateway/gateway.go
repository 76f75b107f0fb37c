// Package gateway issues and enforces the two kinds of bearer capability in
// the system: API tokens and photo share links.
package gateway

import (
	"database/sql"
	"time"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/auth"
)

const (
	APITokenPrefix = "pat_"
	tokenBytes     = 32
	displayPrefix  = 8
)

type Gateway struct {
	DB  *sql.DB
	Now func() time.Time
}

func New(database *sql.DB) *Gateway {
	return &Gateway{DB: database, Now: time.Now}
}

// PurgeExpired deletes share links and API tokens whose expiry is at or
// before now.
func (g *Gateway) PurgeExpired(now time.Time) (shares, tokens int64, err error) {
	shares, err = purgeShares(g.DB, now)
	if err != nil {
		return 0, 0, apperr.Infra("purge expired shares", err)
	}
	tokens, err = purgeTokens(g.DB, now)
	if err != nil {
		return shares, 0, apperr.Infra("purge expired api tokens", err)
	}
	return shares, tokens, nil
}

func expiryFrom(now time.Time, days *int) (*time.Time, error) {
	if days == nil {
		return nil, nil
	}
	if *days < 1 {
		return nil, apperr.Invalid("expiry must be at least one day")
	}
	t := now.Add(time.Duration(*days) * 24 * time.Hour)
	return &t, nil
}

func newToken() (string, error) {
	tok, err := auth.GenerateToken(tokenBytes)
	if err != nil {
		return "", apperr.Infra("generate token", err)
	}
	return tok, nil
}
