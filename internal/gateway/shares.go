package gateway

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
)

// UnknownRecipient is shown for private shares whose target no longer
// resolves to a user.
const UnknownRecipient = "unknown recipient"

// SharedPhoto is what a resolved share link exposes.
type SharedPhoto struct {
	Link          *model.ShareLink
	Photo         *model.Photo
	OwnerUsername string
}

// IssueShareLink shares one of owner's photos. Private links need a target
// user id, which is stored as given even if no such user exists.
func (g *Gateway) IssueShareLink(owner, photoID string, mode model.ShareMode, expiryDays *int, target string) (*model.ShareLink, error) {
	photo, err := db.GetPhoto(g.DB, photoID, owner)
	if err != nil {
		return nil, apperr.Infra("load photo", err)
	}
	if photo == nil {
		return nil, apperr.NotFoundf("photo not found")
	}

	var sharedWith *string
	switch mode {
	case model.SharePublic:
	case model.SharePrivate:
		target = strings.TrimSpace(target)
		if target == "" {
			return nil, apperr.Invalid("a private share needs a recipient")
		}
		sharedWith = &target
	default:
		return nil, apperr.Invalid("share mode must be public or private")
	}

	now := g.Now()
	expiresAt, err := expiryFrom(now, expiryDays)
	if err != nil {
		return nil, err
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	s := &model.ShareLink{
		ID:         uuid.NewString(),
		PhotoID:    photo.ID,
		SharedBy:   owner,
		SharedWith: sharedWith,
		Token:      token,
		Mode:       mode,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		PhotoName:  photo.OriginalName,
	}
	if err := db.CreateShare(g.DB, s); err != nil {
		return nil, apperr.Infra("insert share", err)
	}
	return s, nil
}

// ResolveShareLink returns the shared photo for viewerID ("" when nobody is
// logged in). Unknown tokens are NotFound, expired ones NotFound with code
// expired, and private links viewed by anyone but their target Forbidden.
func (g *Gateway) ResolveShareLink(token, viewerID string) (*SharedPhoto, error) {
	if token == "" {
		return nil, apperr.NotFoundf("share link not found")
	}
	s, err := db.GetShareByToken(g.DB, token)
	if err != nil {
		return nil, apperr.Infra("load share", err)
	}
	if s == nil {
		return nil, apperr.NotFoundf("share link not found")
	}
	if s.ExpiresAt != nil && !g.Now().Before(*s.ExpiresAt) {
		return nil, apperr.New(apperr.NotFound, apperr.CodeExpired, "share link has expired")
	}
	if s.Mode == model.SharePrivate {
		if viewerID == "" || s.SharedWith == nil || *s.SharedWith != viewerID {
			return nil, apperr.New(apperr.Permission, apperr.CodeForbidden, "this photo was shared with someone else")
		}
	}

	photo, err := db.GetPhotoByID(g.DB, s.PhotoID)
	if err != nil {
		return nil, apperr.Infra("load shared photo", err)
	}
	if photo == nil || photo.UserID != s.SharedBy {
		return nil, apperr.NotFoundf("share link not found")
	}
	owner, err := db.GetUserByID(g.DB, s.SharedBy)
	if err != nil {
		return nil, apperr.Infra("load share owner", err)
	}
	out := &SharedPhoto{Link: s, Photo: photo}
	if owner != nil {
		out.OwnerUsername = owner.Username
	}
	return out, nil
}

// ListShareLinks returns owner's shares, newest first, with recipient names
// filled in.
func (g *Gateway) ListShareLinks(owner string) ([]model.ShareLink, error) {
	shares, err := db.ListSharesByOwner(g.DB, owner)
	if err != nil {
		return nil, apperr.Infra("list shares", err)
	}
	for i := range shares {
		if shares[i].Mode == model.SharePrivate && shares[i].SharedWithName == "" {
			shares[i].SharedWithName = UnknownRecipient
		}
	}
	return shares, nil
}

func (g *Gateway) DeleteShareLink(owner, id string) error {
	ok, err := db.DeleteShare(g.DB, id, owner)
	if err != nil {
		return apperr.Infra("delete share", err)
	}
	if !ok {
		return apperr.NotFoundf("share not found")
	}
	return nil
}

func purgeShares(database *sql.DB, now time.Time) (int64, error) {
	return db.DeleteExpiredShares(database, now)
}
