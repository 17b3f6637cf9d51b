package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnknownBatchError reports group creation referencing batches that do not
// exist. No partial group is created.
type UnknownBatchError struct {
	Missing []string
}

func (e *UnknownBatchError) Error() string {
	return "unknown batch: " + strings.Join(e.Missing, ", ")
}

// BatchGroup aggregates pre-existing batches under one identifier.
type BatchGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupRepository is the data access layer for batch groups.
type GroupRepository struct {
	db *DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts the group with its ordered member batches. Every referenced
// batch is verified inside the transaction; a missing one fails the whole
// call with UnknownBatchError.
func (r *GroupRepository) Create(ctx context.Context, group *BatchGroup, batchIDs []string) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var missing []string
	for _, batchID := range batchIDs {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM batches WHERE id = ?`, batchID).Scan(&exists)
		if err == sql.ErrNoRows {
			missing = append(missing, batchID)
			continue
		}
		if err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return &UnknownBatchError{Missing: missing}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batch_groups (id, name, created_at) VALUES (?, ?, ?)`,
		group.ID, nullString(group.Name), group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i, batchID := range batchIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_group_members (group_id, batch_id, position) VALUES (?, ?, ?)`,
			group.ID, batchID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID returns a group, or nil when it does not exist.
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*BatchGroup, error) {
	var group BatchGroup
	var name sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM batch_groups WHERE id = ?`, id,
	).Scan(&group.ID, &name, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	group.Name = name.String
	return &group, nil
}

// ListMembers returns the group's batch identifiers in membership order.
func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id FROM batch_group_members WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batchIDs []string
	for rows.Next() {
		var batchID string
		if err := rows.Scan(&batchID); err != nil {
			return nil, err
		}
		batchIDs = append(batchIDs, batchID)
	}
	return batchIDs, rows.Err()
}
