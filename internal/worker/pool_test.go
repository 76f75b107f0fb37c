package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/backup"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/dbtest"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/sse"
	"github.com/YannKr/photoalbum/internal/storage"
)

func receive(t *testing.T, ch <-chan sse.Event) BackupEvent {
	t.Helper()
	select {
	case evt := <-ch:
		if evt.Type != EventBackupStatus {
			t.Fatalf("event type = %q", evt.Type)
		}
		var be BackupEvent
		if err := json.Unmarshal([]byte(evt.Data), &be); err != nil {
			t.Fatal(err)
		}
		return be
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
	return BackupEvent{}
}

func TestQueuedBackupCompletes(t *testing.T) {
	database := dbtest.Open(t)
	alloc := storage.New(t.TempDir())
	hub := sse.New()
	builder := backup.New(database, alloc)
	pool := NewPool(database, builder, hub, 1)

	u := dbtest.CreateUser(t, database, "alice")
	album := &model.Album{ID: uuid.NewString(), UserID: u.ID, Name: "A", CreatedAt: time.Now()}
	if err := db.CreateAlbum(database, album); err != nil {
		t.Fatal(err)
	}
	dir, _ := alloc.UploadDir(u.ID)
	name := storage.StorageName("a.jpg", time.Now())
	if err := os.WriteFile(filepath.Join(dir, name), []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	photo := &model.Photo{ID: uuid.NewString(), UserID: u.ID, AlbumID: album.ID, Filename: name,
		OriginalName: "a.jpg", FileSize: 4, UploadedAt: time.Now()}
	if err := db.CreatePhoto(database, photo); err != nil {
		t.Fatal(err)
	}

	bk, err := builder.Begin(u.ID, model.BackupManual)
	if err != nil {
		t.Fatal(err)
	}
	job, err := EnqueueBackup(database, bk)
	if err != nil {
		t.Fatal(err)
	}
	events, unsub := hub.Subscribe(BackupTopic(bk.ID))
	defer unsub()

	worked, err := pool.processNext(context.Background())
	if err != nil || !worked {
		t.Fatalf("processNext = %v, %v", worked, err)
	}
	evt := receive(t, events)
	if evt.Status != model.BackupCompleted || evt.PhotosCount != 1 {
		t.Errorf("event = %+v", evt)
	}
	if j, _ := db.GetJob(database, job.ID); j.State != "COMPLETED" {
		t.Errorf("job state = %s", j.State)
	}

	worked, err = pool.processNext(context.Background())
	if err != nil || worked {
		t.Errorf("empty queue: %v, %v", worked, err)
	}
}

func TestQueuedBackupFailure(t *testing.T) {
	database := dbtest.Open(t)
	hub := sse.New()
	builder := backup.New(database, storage.New(t.TempDir()))
	pool := NewPool(database, builder, hub, 1)
	u := dbtest.CreateUser(t, database, "alice")

	bk, err := builder.Begin(u.ID, model.BackupManual)
	if err != nil {
		t.Fatal(err)
	}
	job, _ := EnqueueBackup(database, bk)
	events, unsub := hub.Subscribe(BackupTopic(bk.ID))
	defer unsub()

	if _, err := pool.processNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	evt := receive(t, events)
	if evt.Status != model.BackupFailed || evt.Error == "" {
		t.Errorf("event = %+v", evt)
	}
	j, _ := db.GetJob(database, job.ID)
	if j.State != "FAILED" || j.ErrorMessage == "" {
		t.Errorf("job = %+v", j)
	}
}

func TestStartStop(t *testing.T) {
	database := dbtest.Open(t)
	pool := NewPool(database, backup.New(database, storage.New(t.TempDir())), nil, 2)
	pool.poll = 10 * time.Millisecond
	pool.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	pool.Stop()
}
