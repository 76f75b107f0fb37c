package db

import (
	"database/sql"
	"time"

	"github.com/YannKr/photoalbum/internal/model"
)

const backupColumns = `id, user_id, backup_type, file_path, status, file_size, photos_count,
	COALESCE(error_message, ''), created_at, completed_at`

func scanBackup(row interface{ Scan(...any) error }) (*model.Backup, error) {
	b := &model.Backup{}
	var createdAt SQLiteTime
	var completedAt NullTime
	if err := row.Scan(&b.ID, &b.UserID, &b.Type, &b.FilePath, &b.Status, &b.FileSize, &b.PhotosCount,
		&b.ErrorMessage, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	b.CreatedAt = createdAt.Time
	b.CompletedAt = completedAt.Time
	return b, nil
}

func CreateBackup(database *sql.DB, b *model.Backup) error {
	_, err := database.Exec(
		`INSERT INTO backups (id, user_id, backup_type, file_path, status, created_at) VALUES (?, ?, ?, ?, 'pending', ?)`,
		b.ID, b.UserID, b.Type, b.FilePath, formatTime(b.CreatedAt),
	)
	return err
}

func GetBackup(database *sql.DB, id, userID string) (*model.Backup, error) {
	b, err := scanBackup(database.QueryRow(
		`SELECT `+backupColumns+` FROM backups WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func GetBackupByID(database *sql.DB, id string) (*model.Backup, error) {
	b, err := scanBackup(database.QueryRow(`SELECT `+backupColumns+` FROM backups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func ListBackups(database *sql.DB, userID string) ([]model.Backup, error) {
	rows, err := database.Query(
		`SELECT `+backupColumns+` FROM backups WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBackups(rows)
}

func collectBackups(rows *sql.Rows) ([]model.Backup, error) {
	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// CompleteBackup moves a pending backup to completed. It reports false when
// the row was not pending.
func CompleteBackup(database *sql.DB, id string, size int64, count int, at time.Time) (bool, error) {
	res, err := database.Exec(
		`UPDATE backups SET status = 'completed', file_size = ?, photos_count = ?, completed_at = ?
		 WHERE id = ? AND status = 'pending'`,
		size, count, formatTime(at), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FailBackup moves a pending backup to failed. It reports false when the row
// was not pending.
func FailBackup(database *sql.DB, id, msg string, at time.Time) (bool, error) {
	res, err := database.Exec(
		`UPDATE backups SET status = 'failed', error_message = ?, completed_at = ?
		 WHERE id = ? AND status = 'pending'`,
		msg, formatTime(at), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func DeleteBackup(database *sql.DB, id, userID string) (bool, error) {
	res, err := database.Exec(`DELETE FROM backups WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// HasCompletedBackupSince reports whether the user has a completed backup of
// the given type created at or after since.
func HasCompletedBackupSince(database *sql.DB, userID string, typ model.BackupType, since time.Time) (bool, error) {
	var n int
	err := database.QueryRow(
		`SELECT COUNT(*) FROM backups
		 WHERE user_id = ? AND backup_type = ? AND status = 'completed' AND created_at >= ?`,
		userID, typ, formatTime(since),
	).Scan(&n)
	return n > 0, err
}

// ListCompletedBackupsBefore returns completed backups created before cutoff,
// across all users.
func ListCompletedBackupsBefore(database *sql.DB, cutoff time.Time) ([]model.Backup, error) {
	rows, err := database.Query(
		`SELECT `+backupColumns+` FROM backups WHERE status = 'completed' AND created_at < ? ORDER BY created_at`,
		formatTime(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBackups(rows)
}
