package db

import (
	"database/sql"

	"github.com/YannKr/photoalbum/internal/model"
)

func CreateCategory(database *sql.DB, c *model.Category) error {
	_, err := database.Exec(
		`INSERT INTO categories (id, user_id, name, description, color, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Description, c.Color, formatTime(c.CreatedAt),
	)
	return err
}

// InsertCategoryIfAbsent creates c unless the user already has a category
// with the same name. Either way the stored row is returned.
func InsertCategoryIfAbsent(database *sql.DB, c *model.Category) (*model.Category, error) {
	_, err := database.Exec(
		`INSERT INTO categories (id, user_id, name, description, color, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, name) DO NOTHING`,
		c.ID, c.UserID, c.Name, c.Description, c.Color, formatTime(c.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	return GetCategoryByName(database, c.UserID, c.Name)
}

const categoryColumns = `id, user_id, name, description, color, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	c := &model.Category{}
	var createdAt SQLiteTime
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Color, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt.Time
	return c, nil
}

func GetCategory(database *sql.DB, id, userID string) (*model.Category, error) {
	c, err := scanCategory(database.QueryRow(
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func GetCategoryByName(database *sql.DB, userID, name string) (*model.Category, error) {
	c, err := scanCategory(database.QueryRow(
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND name = ?`, userID, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func CountCategoriesByName(database *sql.DB, userID, name string) (int, error) {
	var n int
	err := database.QueryRow(
		`SELECT COUNT(*) FROM categories WHERE user_id = ? AND name = ?`, userID, name,
	).Scan(&n)
	return n, err
}

func ListCategories(database *sql.DB, userID string) ([]model.Category, error) {
	rows, err := database.Query(
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name, rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}
