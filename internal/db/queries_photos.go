package db

import (
	"database/sql"
	"time"

	"github.com/YannKr/photoalbum/internal/model"
)

const photoColumns = `id, user_id, album_id, filename, original_name, file_size,
	width, height, uploaded_at, edited_at, backup_path`

func scanPhoto(row interface{ Scan(...any) error }) (*model.Photo, error) {
	p := &model.Photo{}
	var width, height sql.NullInt64
	var uploadedAt SQLiteTime
	var editedAt NullTime
	var backupPath sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.AlbumID, &p.Filename, &p.OriginalName, &p.FileSize,
		&width, &height, &uploadedAt, &editedAt, &backupPath); err != nil {
		return nil, err
	}
	p.Width = scanNullInt(width)
	p.Height = scanNullInt(height)
	p.UploadedAt = uploadedAt.Time
	p.EditedAt = editedAt.Time
	p.BackupPath = scanNullString(backupPath)
	return p, nil
}

func CreatePhoto(database *sql.DB, p *model.Photo) error {
	_, err := database.Exec(
		`INSERT INTO photos (id, user_id, album_id, filename, original_name, file_size, width, height, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.AlbumID, p.Filename, p.OriginalName, p.FileSize,
		nullInt(p.Width), nullInt(p.Height), formatTime(p.UploadedAt),
	)
	return err
}

// GetPhoto is scoped by owner: another user's photo reads as absent.
func GetPhoto(database *sql.DB, id, userID string) (*model.Photo, error) {
	p, err := scanPhoto(database.QueryRow(
		`SELECT `+photoColumns+` FROM photos WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetPhotoByID is unscoped and only used after a share link was resolved.
func GetPhotoByID(database *sql.DB, id string) (*model.Photo, error) {
	p, err := scanPhoto(database.QueryRow(`SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPhotos returns the user's photos newest first. An empty albumID lists
// every album.
func ListPhotos(database *sql.DB, userID, albumID string) ([]model.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = ?`
	args := []any{userID}
	if albumID != "" {
		query += ` AND album_id = ?`
		args = append(args, albumID)
	}
	query += ` ORDER BY uploaded_at DESC, rowid DESC`

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func CountPhotos(database *sql.DB, userID string) (int, error) {
	var n int
	err := database.QueryRow(`SELECT COUNT(*) FROM photos WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// DeletePhoto removes the row only if userID owns it. It reports whether a
// row was removed.
func DeletePhoto(database *sql.DB, id, userID string) (bool, error) {
	res, err := database.Exec(`DELETE FROM photos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdatePhotoEdit records the result of an in-place transform.
func UpdatePhotoEdit(database *sql.DB, p *model.Photo, editedAt time.Time) error {
	res, err := database.Exec(
		`UPDATE photos SET width = ?, height = ?, file_size = ?, edited_at = ?, backup_path = ?
		 WHERE id = ? AND user_id = ?`,
		nullInt(p.Width), nullInt(p.Height), p.FileSize, formatTime(editedAt), nullString(p.BackupPath),
		p.ID, p.UserID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
