package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/model"
)

func TestStorageNameIsDecoupledFromOriginal(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		name := StorageName("../../etc/Holiday.JPG", now)
		if !strings.HasSuffix(name, ".jpg") {
			t.Fatalf("extension not preserved: %s", name)
		}
		if strings.Contains(name, "Holiday") || strings.ContainsAny(name, `/\`) {
			t.Fatalf("name leaks client input: %s", name)
		}
		if seen[name] {
			t.Fatalf("collision: %s", name)
		}
		seen[name] = true
	}
}

func TestStorageNameDropsOddExtension(t *testing.T) {
	name := StorageName("x.j/pg", time.Now())
	if strings.Contains(name, "/") {
		t.Errorf("unsafe name %s", name)
	}
}

func TestOwnerDirsAreCreated(t *testing.T) {
	a := New(t.TempDir())
	owner := uuid.NewString()

	up, err := a.UploadDir(owner)
	if err != nil {
		t.Fatal(err)
	}
	bk, err := a.BackupDir(owner)
	if err != nil {
		t.Fatal(err)
	}
	if up == bk {
		t.Fatal("upload and backup dirs must differ")
	}
	for _, d := range []string{up, bk} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Errorf("%s not created: %v", d, err)
		}
	}
}

func TestRejectsTraversal(t *testing.T) {
	a := New(t.TempDir())
	if _, err := a.UploadDir("../other"); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("owner traversal: %v", err)
	}
	if _, err := a.PhotoPath(uuid.NewString(), "../x.jpg"); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("name traversal: %v", err)
	}
}

func TestDirCreationFailureIsInfrastructure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "uploads")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0644); err != nil {
		t.Fatal(err)
	}
	a := New(root)
	_, err := a.UploadDir(uuid.NewString())
	if err == nil || apperr.KindOf(err) != apperr.Infrastructure {
		t.Fatalf("got %v, want infrastructure error", err)
	}
}

func TestArchivePathTagsType(t *testing.T) {
	a := New(t.TempDir())
	owner := uuid.NewString()
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

	manual, err := a.ArchivePath(owner, model.BackupManual, at)
	if err != nil {
		t.Fatal(err)
	}
	auto, err := a.ArchivePath(owner, model.BackupAutomatic, at)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(manual), "backup_"+owner+"_2026-05-04_03-02-01_") {
		t.Errorf("manual = %s", manual)
	}
	if !strings.HasPrefix(filepath.Base(auto), "backup_auto_"+owner) {
		t.Errorf("automatic = %s", auto)
	}
	if manual == auto {
		t.Error("archive paths collide")
	}
}
