package batch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"scriba/internal/asr"
	"scriba/internal/export"
	"scriba/internal/storage"
	"scriba/internal/store"
)

type groupTestEnv struct {
	*testEnv
	groups *GroupManager
}

func newGroupTestEnv(t *testing.T) *groupTestEnv {
	t.Helper()

	jobStore := store.New(t.TempDir())
	if err := jobStore.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	queue := storage.NewQueueRepository(db)
	manager := NewManager(jobStore, storage.NewBatchRepository(db), queue, 50)
	return &groupTestEnv{
		testEnv: &testEnv{manager: manager, store: jobStore, queue: queue},
		groups:  NewGroupManager(storage.NewGroupRepository(db), manager),
	}
}

func (env *groupTestEnv) createBatch(t *testing.T, files ...string) *Status {
	t.Helper()
	status, err := env.manager.Create(context.Background(), testInputs(files...), asr.Options{BeamSize: 5}, []export.Format{export.FormatTXT})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	return status
}

func (env *groupTestEnv) finishJob(t *testing.T, jobID string, ok bool) {
	t.Helper()
	if ok {
		result := &asr.Result{Language: "auto", Duration: 1, Text: "done"}
		renders := map[export.Format][]byte{export.FormatTXT: []byte("done")}
		if err := env.store.WriteResult(jobID, result, renders, 0.5); err != nil {
			t.Fatalf("WriteResult: %v", err)
		}
	} else {
		if err := env.store.WriteError(jobID, "decode failed", 0.5); err != nil {
			t.Fatalf("WriteError: %v", err)
		}
	}
}

func TestGroupCreate_UnknownBatch(t *testing.T) {
	env := newGroupTestEnv(t)
	known := env.createBatch(t, "a.mp3")

	_, _, err := env.groups.Create(context.Background(), []string{known.BatchID, "ghost"}, "")
	var unknown *storage.UnknownBatchError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownBatchError, got %v", err)
	}
	if len(unknown.Missing) != 1 || unknown.Missing[0] != "ghost" {
		t.Errorf("missing batches = %v", unknown.Missing)
	}
}

func TestGroupCreate_Empty(t *testing.T) {
	env := newGroupTestEnv(t)
	if _, _, err := env.groups.Create(context.Background(), []string{" ", ""}, ""); err == nil {
		t.Error("expected error for empty batch id list")
	}
}

func TestGroupCreate_DeduplicatesPreservingOrder(t *testing.T) {
	env := newGroupTestEnv(t)
	b1 := env.createBatch(t, "a.mp3")
	b2 := env.createBatch(t, "b.mp3")

	_, members, err := env.groups.Create(context.Background(),
		[]string{b2.BatchID, b1.BatchID, b2.BatchID}, "evening run")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(members) != 2 || members[0] != b2.BatchID || members[1] != b1.BatchID {
		t.Errorf("members = %v, want [%s %s]", members, b2.BatchID, b1.BatchID)
	}
}

func TestGroupGet(t *testing.T) {
	env := newGroupTestEnv(t)
	ctx := context.Background()

	b1 := env.createBatch(t, "a.mp3", "b.mp3")
	b2 := env.createBatch(t, "c.mp3")

	env.finishJob(t, b1.Jobs[0].JobID, true)
	env.finishJob(t, b1.Jobs[1].JobID, true)
	env.finishJob(t, b2.Jobs[0].JobID, false)

	group, _, err := env.groups.Create(ctx, []string{b1.BatchID, b2.BatchID}, "nightly")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status, err := env.groups.Get(ctx, group.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status.Name != "nightly" || status.TotalBatches != 2 || status.TotalJobs != 3 {
		t.Errorf("group status = %+v", status)
	}
	if status.Status != AggregatePartial {
		t.Errorf("aggregate = %q, want %q", status.Status, AggregatePartial)
	}
	if status.Counts[store.StatusDone] != 2 || status.Counts[store.StatusFailed] != 1 {
		t.Errorf("counts = %v", status.Counts)
	}
	if status.Batches[0].Status != AggregateCompleted || status.Batches[1].Status != AggregateFailed {
		t.Errorf("per-batch statuses = %+v", status.Batches)
	}
}

func TestGroupGet_NotFound(t *testing.T) {
	env := newGroupTestEnv(t)
	if _, err := env.groups.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGroupJobs_ConcatenatedInOrder(t *testing.T) {
	env := newGroupTestEnv(t)
	ctx := context.Background()

	b1 := env.createBatch(t, "a.mp3", "b.mp3")
	b2 := env.createBatch(t, "c.mp3")

	group, _, err := env.groups.Create(ctx, []string{b2.BatchID, b1.BatchID}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	jobs, err := env.groups.Jobs(ctx, group.ID)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}
	want := []string{b2.Jobs[0].JobID, b1.Jobs[0].JobID, b1.Jobs[1].JobID}
	for i, job := range jobs {
		if job.JobID != want[i] {
			t.Errorf("jobs[%d] = %s, want %s", i, job.JobID, want[i])
		}
	}
}
