// Package worker runs queued backups in the background.
package worker

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YannKr/photoalbum/internal/backup"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/model"
	"github.com/YannKr/photoalbum/internal/sse"
)

const (
	JobTypeBackup = "backup"

	// EventBackupStatus is published on BackupTopic(id) whenever a queued
	// backup reaches a terminal state.
	EventBackupStatus = "backup_status"
)

func BackupTopic(backupID string) string {
	return "backup:" + backupID
}

// BackupEvent is the payload of EventBackupStatus.
type BackupEvent struct {
	BackupID    string             `json:"backup_id"`
	Status      model.BackupStatus `json:"status"`
	PhotosCount int                `json:"photos_count,omitempty"`
	FileSize    int64              `json:"file_size,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// EnqueueBackup queues an already-begun backup for a worker to build.
func EnqueueBackup(database *sql.DB, bk *model.Backup) (*model.Job, error) {
	j := &model.Job{
		ID:        uuid.NewString(),
		JobType:   JobTypeBackup,
		SubjectID: bk.ID,
		UserID:    bk.UserID,
		State:     "PENDING",
	}
	if err := db.EnqueueJob(database, j); err != nil {
		return nil, err
	}
	return j, nil
}

type Pool struct {
	database *sql.DB
	builder  *backup.Builder
	sseHub   *sse.Hub
	workers  int
	poll     time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewPool(database *sql.DB, builder *backup.Builder, sseHub *sse.Hub, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{database: database, builder: builder, sseHub: sseHub, workers: workers, poll: 2 * time.Second}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	slog.Info("worker pool started", "workers", p.workers)
}

func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	slog.Info("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		worked, err := p.processNext(ctx)
		if err != nil {
			slog.Error("claim job", "worker", id, "error", err)
			sleep(ctx, p.poll)
			continue
		}
		if !worked {
			sleep(ctx, p.poll)
		}
	}
}

// processNext claims and runs one job. It reports false when the queue was
// empty.
func (p *Pool) processNext(ctx context.Context) (bool, error) {
	job, err := db.ClaimNextJob(p.database, []string{JobTypeBackup})
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	slog.Info("processing job", "job", job.ID, "type", job.JobType, "backup", job.SubjectID)

	bk, buildErr := p.builder.Build(ctx, job.SubjectID)
	if buildErr != nil {
		slog.Error("job failed", "job", job.ID, "error", buildErr)
		if err := db.FailJob(p.database, job.ID, buildErr.Error()); err != nil {
			slog.Error("mark job failed", "job", job.ID, "error", err)
		}
		p.publish(BackupEvent{BackupID: job.SubjectID, Status: p.statusOf(job.SubjectID), Error: buildErr.Error()})
		return true, nil
	}

	if err := db.CompleteJob(p.database, job.ID); err != nil {
		slog.Error("mark job completed", "job", job.ID, "error", err)
	}
	slog.Info("job completed", "job", job.ID)
	p.publish(BackupEvent{
		BackupID:    bk.ID,
		Status:      bk.Status,
		PhotosCount: bk.PhotosCount,
		FileSize:    bk.FileSize,
	})
	return true, nil
}

// statusOf reads the stored status after a failed build; a build can fail
// without changing it (e.g. it was already terminal).
func (p *Pool) statusOf(backupID string) model.BackupStatus {
	bk, err := db.GetBackupByID(p.database, backupID)
	if err != nil || bk == nil {
		return model.BackupFailed
	}
	return bk.Status
}

func (p *Pool) publish(evt BackupEvent) {
	if p.sseHub == nil {
		return
	}
	p.sseHub.PublishJSON(BackupTopic(evt.BackupID), EventBackupStatus, evt)
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
