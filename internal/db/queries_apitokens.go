package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/YannKr/photoalbum/internal/model"
)

func CreateAPIToken(database *sql.DB, t *model.APIToken) error {
	perms, err := json.Marshal(t.Permissions)
	if err != nil {
		return err
	}
	_, err = database.Exec(
		`INSERT INTO api_tokens (id, user_id, name, token_prefix, token_hash, permissions, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Prefix, t.Hash, string(perms), formatTimePtr(t.ExpiresAt), formatTime(t.CreatedAt),
	)
	return err
}

func ListAPITokens(database *sql.DB, userID string) ([]model.APIToken, error) {
	rows, err := database.Query(
		`SELECT id, user_id, name, token_prefix, permissions, expires_at, last_used_at, created_at
		 FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.APIToken
	for rows.Next() {
		var t model.APIToken
		var perms string
		var expiresAt, lastUsed NullTime
		var createdAt SQLiteTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &perms, &expiresAt, &lastUsed, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(perms), &t.Permissions); err != nil {
			return nil, err
		}
		t.ExpiresAt = expiresAt.Time
		t.LastUsedAt = lastUsed.Time
		t.CreatedAt = createdAt.Time
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func DeleteAPIToken(database *sql.DB, id, userID string) (bool, error) {
	res, err := database.Exec(`DELETE FROM api_tokens WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// TouchAPIToken looks up a live token by hash and stamps last_used_at in the
// same statement. Expired tokens and tokens whose owner has the API switched
// off do not match. Returns nil when nothing matched.
func TouchAPIToken(database *sql.DB, hash string, now time.Time) (*model.APIToken, error) {
	ts := formatTime(now)
	t := &model.APIToken{}
	var perms string
	var expiresAt, lastUsed NullTime
	var createdAt SQLiteTime
	err := database.QueryRow(`
		UPDATE api_tokens SET last_used_at = ?
		WHERE token_hash = ?
		  AND (expires_at IS NULL OR expires_at > ?)
		  AND user_id IN (SELECT id FROM users WHERE api_enabled = 1)
		RETURNING id, user_id, name, token_prefix, permissions, expires_at, last_used_at, created_at`,
		ts, hash, ts,
	).Scan(&t.ID, &t.UserID, &t.Name, &t.Prefix, &perms, &expiresAt, &lastUsed, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(perms), &t.Permissions); err != nil {
		return nil, err
	}
	t.ExpiresAt = expiresAt.Time
	t.LastUsedAt = lastUsed.Time
	t.CreatedAt = createdAt.Time
	return t, nil
}

func DeleteExpiredAPITokens(database *sql.DB, now time.Time) (int64, error) {
	res, err := database.Exec(
		`DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
