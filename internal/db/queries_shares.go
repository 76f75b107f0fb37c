package db

import (
	"database/sql"
	"time"

	"github.com/YannKr/photoalbum/internal/model"
)

func CreateShare(database *sql.DB, s *model.ShareLink) error {
	_, err := database.Exec(
		`INSERT INTO shared_photos (id, photo_id, shared_by, shared_with, share_token, is_public, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.PhotoID, s.SharedBy, nullString(s.SharedWith), s.Token,
		s.Mode == model.SharePublic, formatTimePtr(s.ExpiresAt), formatTime(s.CreatedAt),
	)
	return err
}

const shareColumns = `s.id, s.photo_id, s.shared_by, s.shared_with, s.share_token, s.is_public, s.expires_at, s.created_at`

func scanShare(row interface{ Scan(...any) error }, extra ...any) (*model.ShareLink, error) {
	s := &model.ShareLink{}
	var sharedWith sql.NullString
	var isPublic bool
	var expiresAt NullTime
	var createdAt SQLiteTime
	dest := append([]any{&s.ID, &s.PhotoID, &s.SharedBy, &sharedWith, &s.Token, &isPublic, &expiresAt, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.SharedWith = scanNullString(sharedWith)
	s.Mode = model.SharePrivate
	if isPublic {
		s.Mode = model.SharePublic
	}
	s.ExpiresAt = expiresAt.Time
	s.CreatedAt = createdAt.Time
	return s, nil
}

// GetShareByToken returns the share regardless of expiry; callers decide.
func GetShareByToken(database *sql.DB, token string) (*model.ShareLink, error) {
	s, err := scanShare(database.QueryRow(
		`SELECT `+shareColumns+` FROM shared_photos s WHERE s.share_token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListSharesByOwner joins the recipient's username; SharedWithName stays
// empty when the recipient does not resolve.
func ListSharesByOwner(database *sql.DB, userID string) ([]model.ShareLink, error) {
	rows, err := database.Query(`
		SELECT `+shareColumns+`, COALESCE(u.username, ''), p.original_name
		FROM shared_photos s
		JOIN photos p ON p.id = s.photo_id
		LEFT JOIN users u ON u.id = s.shared_with
		WHERE s.shared_by = ?
		ORDER BY s.created_at DESC, s.rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []model.ShareLink
	for rows.Next() {
		var name, photoName string
		s, err := scanShare(rows, &name, &photoName)
		if err != nil {
			return nil, err
		}
		s.SharedWithName = name
		s.PhotoName = photoName
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

func DeleteShare(database *sql.DB, id, userID string) (bool, error) {
	res, err := database.Exec(`DELETE FROM shared_photos WHERE id = ? AND shared_by = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func DeleteExpiredShares(database *sql.DB, now time.Time) (int64, error) {
	res, err := database.Exec(
		`DELETE FROM shared_photos WHERE expires_at IS NOT NULL AND expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
