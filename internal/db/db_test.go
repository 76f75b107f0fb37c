package db_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	photoalbum "github.com/YannKr/photoalbum"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/dbtest"
	"github.com/YannKr/photoalbum/internal/model"
)

func TestMigrateIsIdempotent(t *testing.T) {
	database := dbtest.Open(t)
	if err := db.Migrate(database, photoalbum.MigrationFS); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("recorded migrations = %d, want 1", n)
	}
}

func TestInsertCategoryIfAbsent(t *testing.T) {
	database := dbtest.Open(t)
	u := dbtest.CreateUser(t, database, "alice")

	first, err := db.InsertCategoryIfAbsent(database, &model.Category{
		ID: uuid.New().String(), UserID: u.ID, Name: "General", Color: "#667eea", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.InsertCategoryIfAbsent(database, &model.Category{
		ID: uuid.New().String(), UserID: u.ID, Name: "General", Color: "#000000", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("second insert created a new row: %s vs %s", first.ID, second.ID)
	}
	n, _ := db.CountCategoriesByName(database, u.ID, "General")
	if n != 1 {
		t.Errorf("General categories = %d", n)
	}
}

func TestDuplicateNamesAreUniqueViolations(t *testing.T) {
	database := dbtest.Open(t)
	u := dbtest.CreateUser(t, database, "dave")

	err := db.CreateUser(database, &model.User{
		ID: uuid.New().String(), Username: "dave", Email: "other@example.com", PasswordHash: "x", CreatedAt: time.Now(),
	})
	if !db.IsUniqueViolation(err) {
		t.Errorf("duplicate username: %v", err)
	}

	album := func() error {
		return db.CreateAlbum(database, &model.Album{ID: uuid.New().String(), UserID: u.ID, Name: "Trips", CreatedAt: time.Now()})
	}
	if err := album(); err != nil {
		t.Fatal(err)
	}
	if err := album(); !db.IsUniqueViolation(err) {
		t.Errorf("duplicate album: %v", err)
	}

	category := func() error {
		return db.CreateCategory(database, &model.Category{ID: uuid.New().String(), UserID: u.ID, Name: "Family", Color: "#667eea", CreatedAt: time.Now()})
	}
	if err := category(); err != nil {
		t.Fatal(err)
	}
	if err := category(); !db.IsUniqueViolation(err) {
		t.Errorf("duplicate category: %v", err)
	}

	if db.IsUniqueViolation(nil) {
		t.Error("nil error reported as a violation")
	}
}

func TestOptimize(t *testing.T) {
	if err := db.Optimize(dbtest.Open(t)); err != nil {
		t.Fatal(err)
	}
}

func TestTouchAPITokenRespectsExpiryAndFlag(t *testing.T) {
	database := dbtest.Open(t)
	u := dbtest.CreateUser(t, database, "bob")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	tok := &model.APIToken{
		ID: uuid.New().String(), UserID: u.ID, Name: "cli", Prefix: "pat_abcd", Hash: "h1",
		Permissions: model.NewPermissions(model.PermRead), ExpiresAt: &expires, CreatedAt: now,
	}
	if err := db.CreateAPIToken(database, tok); err != nil {
		t.Fatal(err)
	}

	got, err := db.TouchAPIToken(database, "h1", now)
	if err != nil || got != nil {
		t.Fatalf("api disabled: got %v, %v; want nil", got, err)
	}

	if err := db.SetAPIEnabled(database, u.ID, true); err != nil {
		t.Fatal(err)
	}
	got, err = db.TouchAPIToken(database, "h1", now)
	if err != nil || got == nil {
		t.Fatalf("live token: got %v, %v", got, err)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(now) {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, now)
	}
	if !got.Permissions.Has(model.PermRead) {
		t.Error("permissions lost")
	}

	got, err = db.TouchAPIToken(database, "h1", expires)
	if err != nil || got != nil {
		t.Errorf("expired token: got %v, %v; want nil", got, err)
	}
}

func TestBackupTransitionsOnlyFromPending(t *testing.T) {
	database := dbtest.Open(t)
	u := dbtest.CreateUser(t, database, "carol")
	now := time.Now()

	b := &model.Backup{ID: uuid.New().String(), UserID: u.ID, Type: model.BackupManual, FilePath: "/tmp/x.zip", CreatedAt: now}
	if err := db.CreateBackup(database, b); err != nil {
		t.Fatal(err)
	}
	ok, err := db.CompleteBackup(database, b.ID, 10, 1, now)
	if err != nil || !ok {
		t.Fatalf("complete: %v %v", ok, err)
	}
	ok, err = db.FailBackup(database, b.ID, "late failure", now)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("completed backup must not move to failed")
	}
	got, _ := db.GetBackup(database, b.ID, u.ID)
	if got.Status != model.BackupCompleted || got.PhotosCount != 1 {
		t.Errorf("got %+v", got)
	}
}
