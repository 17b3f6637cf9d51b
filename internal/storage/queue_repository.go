package storage

import (
	"context"
	"database/sql"
	"time"
)

// Queue statuses.
const (
	QueueStatusQueued  = "queued"
	QueueStatusClaimed = "claimed"
	QueueStatusDone    = "done"
)

// QueueItem is one message on the work queue. It carries only the job
// reference; the consumer re-reads full state from the job store.
type QueueItem struct {
	JobID      string
	BatchID    string
	Status     string
	EnqueuedAt time.Time
	WorkerID   string
}

// QueueRepository is the data access layer for the durable work queue.
type QueueRepository struct {
	db *DB
}

// NewQueueRepository creates a new QueueRepository.
func NewQueueRepository(db *DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue places a job reference on the queue and returns immediately.
func (r *QueueRepository) Enqueue(ctx context.Context, jobID, batchID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queue (job_id, batch_id, status, enqueued_at) VALUES (?, ?, ?, ?)`,
		jobID, batchID, QueueStatusQueued, time.Now().UTC(),
	)
	return err
}

// Claim atomically takes the oldest queued item for a worker, or returns nil
// when the queue is empty. The single UPDATE guarantees no two workers claim
// the same job. Insertion order preserves per-batch dispatch order.
func (r *QueueRepository) Claim(ctx context.Context, workerID string) (*QueueItem, error) {
	var item QueueItem
	err := r.db.QueryRowContext(ctx,
		`UPDATE queue SET status = ?, claimed_at = ?, worker_id = ?
		 WHERE job_id = (
		     SELECT job_id FROM queue WHERE status = ? ORDER BY rowid LIMIT 1
		 ) AND status = ?
		 RETURNING job_id, batch_id, enqueued_at`,
		QueueStatusClaimed, time.Now().UTC(), workerID,
		QueueStatusQueued, QueueStatusQueued,
	).Scan(&item.JobID, &item.BatchID, &item.EnqueuedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Status = QueueStatusClaimed
	item.WorkerID = workerID
	return &item, nil
}

// Finish marks a claimed item as consumed.
func (r *QueueRepository) Finish(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE queue SET status = ?, finished_at = ? WHERE job_id = ?`,
		QueueStatusDone, time.Now().UTC(), jobID,
	)
	return err
}

// PendingCount returns the number of unclaimed items.
func (r *QueueRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue WHERE status = ?`, QueueStatusQueued,
	).Scan(&count)
	return count, err
}
