// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	photoalbum "github.com/YannKr/photoalbum"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
)

// Open returns a migrated SQLite database under t.TempDir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.Migrate(database, photoalbum.MigrationFS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t testing.TB, database *sql.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}
	if err := db.CreateUser(database, u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
