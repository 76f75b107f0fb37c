package db

import (
	"database/sql"

	"github.com/YannKr/photoalbum/internal/model"
)

func EnqueueJob(database *sql.DB, j *model.Job) error {
	_, err := database.Exec(
		`INSERT INTO jobs (id, job_type, subject_id, user_id, state) VALUES (?, ?, ?, ?, 'PENDING')`,
		j.ID, j.JobType, j.SubjectID, j.UserID,
	)
	return err
}

// ClaimNextJob atomically moves the oldest pending job of one of jobTypes to
// RUNNING and returns it, or nil when the queue is empty.
func ClaimNextJob(database *sql.DB, jobTypes []string) (*model.Job, error) {
	if len(jobTypes) == 0 {
		return nil, nil
	}

	query := `
		UPDATE jobs
		SET state = 'RUNNING', started_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = (
			SELECT id FROM jobs
			WHERE state = 'PENDING' AND job_type IN (`

	args := make([]interface{}, len(jobTypes))
	for i, jt := range jobTypes {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = jt
	}
	query += `) ORDER BY created_at ASC, rowid ASC LIMIT 1
		)
		RETURNING id, job_type, subject_id, user_id, state, created_at, started_at`

	j := &model.Job{}
	var createdAt SQLiteTime
	var startedAt NullTime
	err := database.QueryRow(query, args...).Scan(
		&j.ID, &j.JobType, &j.SubjectID, &j.UserID, &j.State, &createdAt, &startedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.CreatedAt = createdAt.Time
	j.StartedAt = startedAt.Time
	return j, nil
}

func CompleteJob(database *sql.DB, id string) error {
	_, err := database.Exec(
		`UPDATE jobs SET state = 'COMPLETED', completed_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE id = ?`, id,
	)
	return err
}

func FailJob(database *sql.DB, id, errorMsg string) error {
	_, err := database.Exec(
		`UPDATE jobs SET state = 'FAILED', error_message = ?, completed_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE id = ?`, errorMsg, id,
	)
	return err
}

func GetJob(database *sql.DB, id string) (*model.Job, error) {
	j := &model.Job{}
	var createdAt SQLiteTime
	var startedAt, completedAt NullTime
	err := database.QueryRow(`
		SELECT id, job_type, subject_id, user_id, state, COALESCE(error_message, ''),
		       created_at, started_at, completed_at
		FROM jobs WHERE id = ?`, id,
	).Scan(&j.ID, &j.JobType, &j.SubjectID, &j.UserID, &j.State, &j.ErrorMessage,
		&createdAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.CreatedAt = createdAt.Time
	j.StartedAt = startedAt.Time
	j.CompletedAt = completedAt.Time
	return j, nil
}
