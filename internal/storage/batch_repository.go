package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Batch is an immutable record of jobs created together.
type Batch struct {
	ID           string    `json:"id"`
	SourceFolder string    `json:"source_folder,omitempty"`
	TotalJobs    int       `json:"total_jobs"`
	CreatedAt    time.Time `json:"created_at"`
}

// BatchJob is one ordered member of a batch.
type BatchJob struct {
	BatchID  string `json:"batch_id"`
	JobID    string `json:"job_id"`
	Position int    `json:"position"`
	Filename string `json:"filename"`
}

// BatchRepository is the data access layer for batches.
type BatchRepository struct {
	db *DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// NewBatchID returns a fresh batch identifier.
func NewBatchID() string {
	return uuid.New().String()
}

// CreateWithJobs inserts the batch record and its full ordered job list in
// one transaction, so a batch is never observed with a partial job list.
func (r *BatchRepository) CreateWithJobs(ctx context.Context, batch *Batch, jobs []BatchJob) error {
	if batch.ID == "" {
		batch.ID = NewBatchID()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	batch.TotalJobs = len(jobs)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, source_folder, total_jobs, created_at) VALUES (?, ?, ?, ?)`,
		batch.ID, nullString(batch.SourceFolder), batch.TotalJobs, batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for i, job := range jobs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_jobs (batch_id, job_id, position, filename) VALUES (?, ?, ?, ?)`,
			batch.ID, job.JobID, i, job.Filename,
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch job: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID returns a batch, or nil when it does not exist.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*Batch, error) {
	var batch Batch
	var sourceFolder sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source_folder, total_jobs, created_at FROM batches WHERE id = ?`, id,
	).Scan(&batch.ID, &sourceFolder, &batch.TotalJobs, &batch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	batch.SourceFolder = sourceFolder.String
	return &batch, nil
}

// ListJobs returns a batch's jobs in creation order.
func (r *BatchRepository) ListJobs(ctx context.Context, batchID string) ([]BatchJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id, job_id, position, filename FROM batch_jobs WHERE batch_id = ? ORDER BY position`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []BatchJob
	for rows.Next() {
		var job BatchJob
		if err := rows.Scan(&job.BatchID, &job.JobID, &job.Position, &job.Filename); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
