package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"scriba/internal/asr"
	"scriba/internal/export"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return s
}

func createTestJob(t *testing.T, s *Store, batchID string) *JobMeta {
	t.Helper()
	meta, err := s.Create(batchID, []byte("audio-bytes"), "speech.mp3",
		asr.Options{Language: "en", BeamSize: 5, VadFilter: true},
		[]export.Format{export.FormatTXT, export.FormatJSON})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return meta
}

func TestCreateAndLoad(t *testing.T) {
	s := newTestStore(t)
	meta := createTestJob(t, s, "batch-1")

	if meta.Status != StatusQueued {
		t.Errorf("new job status = %q, want %q", meta.Status, StatusQueued)
	}
	if meta.JobID == "" {
		t.Error("new job has no id")
	}
	if filepath.Ext(meta.InputPath) != ".mp3" {
		t.Errorf("input path %q should keep the upload extension", meta.InputPath)
	}
	if _, err := os.Stat(meta.InputPath); err != nil {
		t.Errorf("input file not written: %v", err)
	}

	loaded, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if loaded.BatchID != "batch-1" || loaded.Filename != "speech.mp3" {
		t.Errorf("loaded meta = %+v", loaded)
	}
	if loaded.Language != "en" || loaded.BeamSize != 5 || !loaded.VadFilter {
		t.Errorf("options not persisted: %+v", loaded)
	}

	batchID, err := s.FindBatchForJob(meta.JobID)
	if err != nil {
		t.Fatalf("FindBatchForJob: %v", err)
	}
	if batchID != "batch-1" {
		t.Errorf("FindBatchForJob = %q, want batch-1", batchID)
	}
}

func TestLoadMeta_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadMeta("no-such-job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteResult(t *testing.T) {
	s := newTestStore(t)
	meta := createTestJob(t, s, "batch-1")

	if _, err := s.MarkRunning(meta.JobID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	running, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if running.Status != StatusRunning || running.StartedAt == nil {
		t.Errorf("after MarkRunning: status=%q started=%v", running.Status, running.StartedAt)
	}

	result := &asr.Result{Language: "en", Duration: 12.5, Text: "hello"}
	renders := map[export.Format][]byte{
		export.FormatTXT:  []byte("hello"),
		export.FormatJSON: []byte("{}"),
	}
	if err := s.WriteResult(meta.JobID, result, renders, 3.2); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	done, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if done.Status != StatusDone || done.FinishedAt == nil {
		t.Errorf("after WriteResult: status=%q finished=%v", done.Status, done.FinishedAt)
	}
	if done.AudioDurationSeconds != 12.5 || done.ProcessTimeSeconds != 3.2 {
		t.Errorf("metrics not recorded: %+v", done)
	}
	if len(done.ResultFiles) != 2 {
		t.Errorf("result files = %v", done.ResultFiles)
	}

	content, err := s.ReadExport(meta.JobID, export.FormatTXT)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("txt artifact = %q", content)
	}
	if !s.HasArtifact("batch-1", meta.JobID, export.FormatJSON) {
		t.Error("json artifact missing")
	}
	if s.HasArtifact("batch-1", meta.JobID, export.FormatSRT) {
		t.Error("srt artifact should not exist")
	}
}

func TestWriteResult_Idempotent(t *testing.T) {
	s := newTestStore(t)
	meta := createTestJob(t, s, "batch-1")

	result := &asr.Result{Duration: 1, Text: "once"}
	renders := map[export.Format][]byte{export.FormatTXT: []byte("once")}
	if err := s.WriteResult(meta.JobID, result, renders, 1); err != nil {
		t.Fatalf("first WriteResult: %v", err)
	}
	if err := s.WriteResult(meta.JobID, result, renders, 1); err != nil {
		t.Fatalf("second WriteResult: %v", err)
	}

	content, err := s.ReadExport(meta.JobID, export.FormatTXT)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if string(content) != "once" {
		t.Errorf("artifact after repeat = %q", content)
	}
}

func TestWriteError(t *testing.T) {
	s := newTestStore(t)
	meta := createTestJob(t, s, "batch-1")

	if err := s.WriteError(meta.JobID, "ffmpeg exploded", 0.5); err != nil {
		t.Fatalf("WriteError: %v", err)
	}

	failed, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if failed.Status != StatusFailed || failed.Error != "ffmpeg exploded" {
		t.Errorf("after WriteError: %+v", failed)
	}

	errPath := filepath.Join(s.JobDir("batch-1", meta.JobID), "error.txt")
	data, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("error.txt not written: %v", err)
	}
	if string(data) != "ffmpeg exploded" {
		t.Errorf("error.txt = %q", data)
	}
}

func TestResultSupersedesError(t *testing.T) {
	s := newTestStore(t)
	meta := createTestJob(t, s, "batch-1")

	if err := s.WriteError(meta.JobID, "transient", 0.1); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	result := &asr.Result{Duration: 2, Text: "recovered"}
	if err := s.WriteResult(meta.JobID, result, map[export.Format][]byte{export.FormatTXT: []byte("recovered")}, 1); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	final, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if final.Status != StatusDone || final.Error != "" {
		t.Errorf("result should supersede error: %+v", final)
	}
	errPath := filepath.Join(s.JobDir("batch-1", meta.JobID), "error.txt")
	if _, err := os.Stat(errPath); !os.IsNotExist(err) {
		t.Error("error.txt should be removed after a successful result")
	}
}

func TestReadExport_NotFound(t *testing.T) {
	s := newTestStore(t)
	meta := createTestJob(t, s, "batch-1")

	if _, err := s.ReadExport(meta.JobID, export.FormatSRT); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing artifact, got %v", err)
	}
}
