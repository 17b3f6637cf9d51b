package worker

import (
	"context"
	"errors"
	"testing"

	"scriba/internal/asr"
	"scriba/internal/export"
	"scriba/internal/store"
)

// fakeEngine returns a canned result or error and records its calls.
type fakeEngine struct {
	result *asr.Result
	err    error
	calls  int
}

func (f *fakeEngine) Transcribe(ctx context.Context, inputPath string, opts asr.Options) (*asr.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestJob(t *testing.T) (*store.Store, *store.JobMeta) {
	t.Helper()
	s := store.New(t.TempDir())
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	meta, err := s.Create("batch-1", []byte("audio"), "talk.mp3",
		asr.Options{Language: "en", BeamSize: 5},
		[]export.Format{export.FormatTXT, export.FormatSRT})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s, meta
}

func TestProcess_Success(t *testing.T) {
	s, meta := newTestJob(t)
	engine := &fakeEngine{result: &asr.Result{
		Language: "en",
		Duration: 4.2,
		Text:     "hello there",
		Segments: []asr.Segment{{Start: 0, End: 4.2, Text: "hello there"}},
	}}

	p := NewProcessor(s, engine)
	if err := p.Process(context.Background(), meta.JobID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	final, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if final.Status != store.StatusDone {
		t.Errorf("status = %q, want %q", final.Status, store.StatusDone)
	}
	if final.DetectedLanguage != "en" || final.AudioDurationSeconds != 4.2 {
		t.Errorf("result metrics = %+v", final)
	}
	if final.StartedAt == nil || final.FinishedAt == nil {
		t.Error("timestamps not recorded")
	}

	txt, err := s.ReadExport(meta.JobID, export.FormatTXT)
	if err != nil {
		t.Fatalf("ReadExport txt: %v", err)
	}
	if string(txt) != "hello there" {
		t.Errorf("txt artifact = %q", txt)
	}
	if _, err := s.ReadExport(meta.JobID, export.FormatSRT); err != nil {
		t.Errorf("srt artifact missing: %v", err)
	}
}

func TestProcess_EngineFailureContained(t *testing.T) {
	s, meta := newTestJob(t)
	engine := &fakeEngine{err: errors.New("model blew up")}

	p := NewProcessor(s, engine)
	if err := p.Process(context.Background(), meta.JobID); err != nil {
		t.Fatalf("engine failure must not propagate, got %v", err)
	}

	final, err := s.LoadMeta(meta.JobID)
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if final.Status != store.StatusFailed {
		t.Errorf("status = %q, want %q", final.Status, store.StatusFailed)
	}
	if final.Error != "model blew up" {
		t.Errorf("error message = %q", final.Error)
	}
}

func TestProcess_UnsupportedFormatMessage(t *testing.T) {
	s, meta := newTestJob(t)
	engine := &fakeEngine{err: asr.ErrUnsupportedFormat}

	p := NewProcessor(s, engine)
	if err := p.Process(context.Background(), meta.JobID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	final, _ := s.LoadMeta(meta.JobID)
	if final.Status != store.StatusFailed {
		t.Errorf("status = %q", final.Status)
	}
	if final.Error == "" || final.Error == "model blew up" {
		t.Errorf("error message = %q", final.Error)
	}
}

func TestProcess_SkipsTerminalJobs(t *testing.T) {
	s, meta := newTestJob(t)
	engine := &fakeEngine{result: &asr.Result{Text: "x", Duration: 1}}
	p := NewProcessor(s, engine)

	if err := p.Process(context.Background(), meta.JobID); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if err := p.Process(context.Background(), meta.JobID); err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("engine ran %d times for a duplicate delivery, want 1", engine.calls)
	}
}

func TestProcess_UnknownJob(t *testing.T) {
	s := store.New(t.TempDir())
	if err := s.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	p := NewProcessor(s, &fakeEngine{})
	if err := p.Process(context.Background(), "no-such-job"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
