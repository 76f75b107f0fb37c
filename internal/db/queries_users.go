package db

import (
	"database/sql"

	"github.com/YannKr/photoalbum/internal/model"
)

const userColumns = `id, username, email, password_hash, api_enabled, backup_enabled, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	var createdAt SQLiteTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.APIEnabled, &u.BackupEnabled, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = createdAt.Time
	return u, nil
}

func CreateUser(database *sql.DB, u *model.User) error {
	_, err := database.Exec(
		`INSERT INTO users (id, username, email, password_hash, api_enabled, backup_enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.APIEnabled, u.BackupEnabled, formatTime(u.CreatedAt),
	)
	return err
}

func GetUserByID(database *sql.DB, id string) (*model.User, error) {
	u, err := scanUser(database.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByLogin matches either the username or the email address.
func GetUserByLogin(database *sql.DB, login string) (*model.User, error) {
	u, err := scanUser(database.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`, login, login))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func UsernameOrEmailTaken(database *sql.DB, username, email string) (bool, error) {
	var n int
	err := database.QueryRow(
		`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`, username, email,
	).Scan(&n)
	return n > 0, err
}

func SetAPIEnabled(database *sql.DB, userID string, enabled bool) error {
	_, err := database.Exec(`UPDATE users SET api_enabled = ? WHERE id = ?`, enabled, userID)
	return err
}

func SetBackupEnabled(database *sql.DB, userID string, enabled bool) error {
	_, err := database.Exec(`UPDATE users SET backup_enabled = ? WHERE id = ?`, enabled, userID)
	return err
}

func ListBackupEnabledUsers(database *sql.DB) ([]model.User, error) {
	rows, err := database.Query(`SELECT ` + userColumns + ` FROM users WHERE backup_enabled = 1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
