package db

import (
	"database/sql"

	"github.com/YannKr/photoalbum/internal/model"
)

func CreateAlbum(database *sql.DB, a *model.Album) error {
	_, err := database.Exec(
		`INSERT INTO albums (id, user_id, category_id, name, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, nullString(a.CategoryID), a.Name, a.Description, formatTime(a.CreatedAt),
	)
	return err
}

// InsertAlbumIfAbsent creates a unless the user already has an album with
// the same name, and returns the stored row.
func InsertAlbumIfAbsent(database *sql.DB, a *model.Album) (*model.Album, error) {
	_, err := database.Exec(
		`INSERT INTO albums (id, user_id, category_id, name, description, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, name) DO NOTHING`,
		a.ID, a.UserID, nullString(a.CategoryID), a.Name, a.Description, formatTime(a.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	return scanOneAlbum(database.QueryRow(
		`SELECT `+albumColumns+` FROM albums WHERE user_id = ? AND name = ?`, a.UserID, a.Name))
}

const albumColumns = `id, user_id, category_id, name, description, created_at`

func scanAlbum(row interface{ Scan(...any) error }) (*model.Album, error) {
	a := &model.Album{}
	var categoryID sql.NullString
	var createdAt SQLiteTime
	if err := row.Scan(&a.ID, &a.UserID, &categoryID, &a.Name, &a.Description, &createdAt); err != nil {
		return nil, err
	}
	a.CategoryID = scanNullString(categoryID)
	a.CreatedAt = createdAt.Time
	return a, nil
}

func scanOneAlbum(row *sql.Row) (*model.Album, error) {
	a, err := scanAlbum(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func GetAlbum(database *sql.DB, id, userID string) (*model.Album, error) {
	return scanOneAlbum(database.QueryRow(
		`SELECT `+albumColumns+` FROM albums WHERE id = ? AND user_id = ?`, id, userID))
}

// OldestAlbum returns the user's first-created album, or nil if there is none.
func OldestAlbum(database *sql.DB, userID string) (*model.Album, error) {
	return scanOneAlbum(database.QueryRow(
		`SELECT `+albumColumns+` FROM albums WHERE user_id = ? ORDER BY created_at, rowid LIMIT 1`, userID))
}

func CountAlbumsByName(database *sql.DB, userID, name string) (int, error) {
	var n int
	err := database.QueryRow(
		`SELECT COUNT(*) FROM albums WHERE user_id = ? AND name = ?`, userID, name,
	).Scan(&n)
	return n, err
}

// ListAlbums returns the user's albums with category details and photo
// counts, ordered by category name then album name.
func ListAlbums(database *sql.DB, userID string) ([]model.Album, error) {
	rows, err := database.Query(`
		SELECT a.id, a.user_id, a.category_id, a.name, a.description, a.created_at,
		       COALESCE(c.name, ''), COALESCE(c.color, ''),
		       (SELECT COUNT(*) FROM photos p WHERE p.album_id = a.id)
		FROM albums a
		LEFT JOIN categories c ON c.id = a.category_id
		WHERE a.user_id = ?
		ORDER BY COALESCE(c.name, ''), a.name, a.rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []model.Album
	for rows.Next() {
		var a model.Album
		var categoryID sql.NullString
		var createdAt SQLiteTime
		if err := rows.Scan(&a.ID, &a.UserID, &categoryID, &a.Name, &a.Description, &createdAt,
			&a.CategoryName, &a.CategoryColor, &a.PhotoCount); err != nil {
			return nil, err
		}
		a.CategoryID = scanNullString(categoryID)
		a.CreatedAt = createdAt.Time
		albums = append(albums, a)
	}
	return albums, rows.Err()
}
