package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scriba/internal/storage"
)

// GroupBatchSummary is the per-batch view inside a group status response.
type GroupBatchSummary struct {
	BatchID   string         `json:"batch_id"`
	CreatedAt time.Time      `json:"created_at"`
	TotalJobs int            `json:"total_jobs"`
	Status    string         `json:"status"`
	Counts    map[string]int `json:"summary"`
}

// GroupStatus is the derived aggregate view of one batch group.
type GroupStatus struct {
	GroupID      string              `json:"group_id"`
	Name         string              `json:"name,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	BatchIDs     []string            `json:"batch_ids"`
	TotalBatches int                 `json:"total_batches"`
	TotalJobs    int                 `json:"total_jobs"`
	Status       string              `json:"status"`
	Counts       map[string]int      `json:"summary"`
	Batches      []GroupBatchSummary `json:"batches"`
}

// GroupManager aggregates existing batches into logical groups. Groups never
// create batches; membership is immutable after creation.
type GroupManager struct {
	groups  *storage.GroupRepository
	batches *Manager
}

// NewGroupManager creates a group manager.
func NewGroupManager(groups *storage.GroupRepository, batches *Manager) *GroupManager {
	return &GroupManager{groups: groups, batches: batches}
}

// Create builds a group from existing batch identifiers, preserving the
// provided order (duplicates are dropped, first occurrence wins). Any
// unknown batch fails the whole call.
func (g *GroupManager) Create(ctx context.Context, batchIDs []string, name string) (*storage.BatchGroup, []string, error) {
	cleaned := uniquePreserveOrder(batchIDs)
	if len(cleaned) == 0 {
		return nil, nil, fmt.Errorf("at least one batch id is required")
	}

	group := &storage.BatchGroup{Name: name}
	if err := g.groups.Create(ctx, group, cleaned); err != nil {
		return nil, nil, err
	}
	return group, cleaned, nil
}

// Get returns the derived aggregate status of a group with per-batch
// summaries in membership order.
func (g *GroupManager) Get(ctx context.Context, groupID string) (*GroupStatus, error) {
	group, err := g.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}

	batchIDs, err := g.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	totals := CountStatuses(nil)
	totalJobs := 0
	var allStatuses []string
	summaries := make([]GroupBatchSummary, 0, len(batchIDs))
	for _, batchID := range batchIDs {
		status, err := g.batches.Get(ctx, batchID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, GroupBatchSummary{
			BatchID:   batchID,
			CreatedAt: status.CreatedAt,
			TotalJobs: status.TotalJobs,
			Status:    status.Status,
			Counts:    status.Counts,
		})
		totalJobs += status.TotalJobs
		for _, job := range status.Jobs {
			allStatuses = append(allStatuses, job.Status)
			totals[job.Status]++
		}
	}

	return &GroupStatus{
		GroupID:      group.ID,
		Name:         group.Name,
		CreatedAt:    group.CreatedAt,
		BatchIDs:     batchIDs,
		TotalBatches: len(batchIDs),
		TotalJobs:    totalJobs,
		Status:       DeriveStatus(allStatuses),
		Counts:       totals,
		Batches:      summaries,
	}, nil
}

// Jobs returns every member batch's jobs concatenated in group order, each
// batch's jobs in creation order.
func (g *GroupManager) Jobs(ctx context.Context, groupID string) ([]storage.BatchJob, error) {
	group, err := g.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}

	batchIDs, err := g.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var jobs []storage.BatchJob
	for _, batchID := range batchIDs {
		batchJobs, err := g.batches.Jobs(ctx, batchID)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batchJobs...)
	}
	return jobs, nil
}

func uniquePreserveOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	var result []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		result = append(result, value)
	}
	return result
}
