package batch

import "scriba/internal/store"

// Aggregate batch/group statuses, derived from member job statuses and
// never stored.
const (
	AggregateRunning   = "running"   // at least one job still queued/running
	AggregateCompleted = "completed" // every job done
	AggregateFailed    = "failed"    // every job failed
	AggregatePartial   = "partial"   // terminal mix of done and failed
)

// DeriveStatus computes the aggregate status of a set of job statuses.
// An empty set counts as completed.
func DeriveStatus(statuses []string) string {
	done, failed := 0, 0
	for _, status := range statuses {
		switch status {
		case store.StatusDone:
			done++
		case store.StatusFailed:
			failed++
		default:
			return AggregateRunning
		}
	}
	switch {
	case failed == 0:
		return AggregateCompleted
	case done == 0 && failed > 0:
		return AggregateFailed
	default:
		return AggregatePartial
	}
}

// CountStatuses tallies job statuses into the fixed status keys.
func CountStatuses(statuses []string) map[string]int {
	counts := map[string]int{
		store.StatusQueued:  0,
		store.StatusRunning: 0,
		store.StatusDone:    0,
		store.StatusFailed:  0,
	}
	for _, status := range statuses {
		if _, ok := counts[status]; ok {
			counts[status]++
		}
	}
	return counts
}
