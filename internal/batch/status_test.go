package batch

import (
	"testing"

	"scriba/internal/store"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{name: "empty set counts as completed", statuses: nil, want: AggregateCompleted},
		{name: "all done", statuses: []string{store.StatusDone, store.StatusDone}, want: AggregateCompleted},
		{name: "all failed", statuses: []string{store.StatusFailed}, want: AggregateFailed},
		{name: "mix of done and failed", statuses: []string{store.StatusDone, store.StatusFailed}, want: AggregatePartial},
		{name: "queued keeps batch running", statuses: []string{store.StatusDone, store.StatusQueued}, want: AggregateRunning},
		{name: "running keeps batch running", statuses: []string{store.StatusFailed, store.StatusRunning}, want: AggregateRunning},
		{name: "single queued", statuses: []string{store.StatusQueued}, want: AggregateRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.statuses); got != tt.want {
				t.Errorf("DeriveStatus(%v) = %q, want %q", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestCountStatuses(t *testing.T) {
	counts := CountStatuses([]string{
		store.StatusDone, store.StatusDone, store.StatusFailed, store.StatusQueued,
	})

	want := map[string]int{
		store.StatusQueued:  1,
		store.StatusRunning: 0,
		store.StatusDone:    2,
		store.StatusFailed:  1,
	}
	for status, n := range want {
		if counts[status] != n {
			t.Errorf("counts[%s] = %d, want %d", status, counts[status], n)
		}
	}
}
