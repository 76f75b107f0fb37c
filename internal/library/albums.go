package library

import (
	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
)

func (l *Library) CreateCategory(owner, name, description, color string) (*model.Category, error) {
	name, err := cleanName(name, 100)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = DefaultCategoryColor
	}
	if !validColor(color) {
		return nil, apperr.Invalid("color must look like #rrggbb")
	}

	n, err := db.CountCategoriesByName(l.DB, owner, name)
	if err != nil {
		return nil, apperr.Infra("check category name", err)
	}
	if n > 0 {
		return nil, apperr.New(apperr.StateConflict, apperr.CodeDuplicateName, "a category with this name already exists")
	}

	c := &model.Category{
		ID:          uuid.NewString(),
		UserID:      owner,
		Name:        name,
		Description: description,
		Color:       color,
		CreatedAt:   l.Now(),
	}
	if err := db.CreateCategory(l.DB, c); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.StateConflict, apperr.CodeDuplicateName, "a category with this name already exists")
		}
		return nil, apperr.Infra("create category", err)
	}
	return c, nil
}

// CreateAlbum files a new album, optionally under one of the owner's
// categories. An empty categoryID creates an uncategorised album.
func (l *Library) CreateAlbum(owner, name, categoryID, description string) (*model.Album, error) {
	name, err := cleanName(name, 100)
	if err != nil {
		return nil, err
	}

	var catID *string
	if categoryID != "" {
		cat, err := db.GetCategory(l.DB, categoryID, owner)
		if err != nil {
			return nil, apperr.Infra("load category", err)
		}
		if cat == nil {
			return nil, apperr.NotFoundf("category not found")
		}
		catID = &cat.ID
	}

	n, err := db.CountAlbumsByName(l.DB, owner, name)
	if err != nil {
		return nil, apperr.Infra("check album name", err)
	}
	if n > 0 {
		return nil, apperr.New(apperr.StateConflict, apperr.CodeDuplicateName, "an album with this name already exists")
	}

	a := &model.Album{
		ID:          uuid.NewString(),
		UserID:      owner,
		CategoryID:  catID,
		Name:        name,
		Description: description,
		CreatedAt:   l.Now(),
	}
	if err := db.CreateAlbum(l.DB, a); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.StateConflict, apperr.CodeDuplicateName, "an album with this name already exists")
		}
		return nil, apperr.Infra("create album", err)
	}
	return a, nil
}

func (l *Library) ListAlbums(owner string) ([]model.Album, error) {
	albums, err := db.ListAlbums(l.DB, owner)
	if err != nil {
		return nil, apperr.Infra("list albums", err)
	}
	return albums, nil
}

func (l *Library) ListCategories(owner string) ([]model.Category, error) {
	cats, err := db.ListCategories(l.DB, owner)
	if err != nil {
		return nil, apperr.Infra("list categories", err)
	}
	return cats, nil
}

func validColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
