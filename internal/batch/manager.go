// Package batch turns sets of file transcription requests into tracked,
// queryable units of work: batches of jobs and groups of batches.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scriba/internal/asr"
	"scriba/internal/export"
	"scriba/internal/storage"
	"scriba/internal/store"
)

// ErrNotFound is returned when a batch or group identifier is unknown.
var ErrNotFound = errors.New("not found")

// TooManyFilesError rejects a folder scan that discovered more audio files
// than the limit allows. Nothing is created when it is returned.
type TooManyFilesError struct {
	Found int
	Limit int
}

func (e *TooManyFilesError) Error() string {
	return fmt.Sprintf("found %d audio files, exceeds max_files=%d", e.Found, e.Limit)
}

// Input is one file submitted for transcription.
type Input struct {
	Filename string
	Data     []byte
}

// JobSummary is the per-job view inside a batch status response.
type JobSummary struct {
	JobID     string          `json:"job_id"`
	Filename  string          `json:"filename"`
	Status    string          `json:"status"`
	Available []export.Format `json:"available_formats,omitempty"`
}

// Status is the derived aggregate view of one batch.
type Status struct {
	BatchID      string         `json:"batch_id"`
	SourceFolder string         `json:"source_folder,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	TotalJobs    int            `json:"total_jobs"`
	Status       string         `json:"status"`
	Counts       map[string]int `json:"summary"`
	Jobs         []JobSummary   `json:"jobs"`
}

// Manager creates batches and answers status queries.
type Manager struct {
	store    *store.Store
	batches  *storage.BatchRepository
	queue    *storage.QueueRepository
	maxFiles int
}

// NewManager creates a batch manager. maxFiles is the default folder-scan
// limit used when a request does not set its own.
func NewManager(jobStore *store.Store, batches *storage.BatchRepository, queue *storage.QueueRepository, maxFiles int) *Manager {
	return &Manager{
		store:    jobStore,
		batches:  batches,
		queue:    queue,
		maxFiles: maxFiles,
	}
}

// Create builds one job per input, persists the batch record atomically with
// its full job list, and only then enqueues the jobs. Input order is
// preserved as job creation order.
func (m *Manager) Create(ctx context.Context, inputs []Input, opts asr.Options, formats []export.Format) (*Status, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one input file is required")
	}
	return m.create(ctx, inputs, "", opts, formats)
}

// CreateFromFolder scans a server-side folder for audio files and creates a
// batch from them. When more files are discovered than maxFiles (0 means the
// configured default), the call fails closed with TooManyFilesError before
// creating any job or batch.
func (m *Manager) CreateFromFolder(ctx context.Context, folder string, recursive bool, maxFiles int, opts asr.Options, formats []export.Format) (*Status, error) {
	if maxFiles <= 0 {
		maxFiles = m.maxFiles
	}

	files, err := FindAudioFiles(folder, recursive)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no audio files found in %s", folder)
	}
	if len(files) > maxFiles {
		return nil, &TooManyFilesError{Found: len(files), Limit: maxFiles}
	}

	inputs := make([]Input, 0, len(files))
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(folder, rel))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		inputs = append(inputs, Input{Filename: rel, Data: data})
	}
	return m.create(ctx, inputs, folder, opts, formats)
}

// PreviewFolder performs the folder scan without creating anything.
func (m *Manager) PreviewFolder(folder string, recursive bool, maxFiles int) (*Preview, error) {
	if maxFiles <= 0 {
		maxFiles = m.maxFiles
	}
	files, err := FindAudioFiles(folder, recursive)
	if err != nil {
		return nil, err
	}
	return &Preview{
		SourceFolder: folder,
		Recursive:    recursive,
		MaxFiles:     maxFiles,
		TotalFiles:   len(files),
		ExceedsLimit: len(files) > maxFiles,
		AudioFiles:   files,
	}, nil
}

func (m *Manager) create(ctx context.Context, inputs []Input, sourceFolder string, opts asr.Options, formats []export.Format) (*Status, error) {
	batchID := storage.NewBatchID()

	jobs := make([]storage.BatchJob, 0, len(inputs))
	summaries := make([]JobSummary, 0, len(inputs))
	for _, input := range inputs {
		meta, err := m.store.Create(batchID, input.Data, input.Filename, opts, formats)
		if err != nil {
			return nil, fmt.Errorf("failed to create job for %s: %w", input.Filename, err)
		}
		jobs = append(jobs, storage.BatchJob{
			BatchID:  batchID,
			JobID:    meta.JobID,
			Filename: input.Filename,
		})
		summaries = append(summaries, JobSummary{
			JobID:    meta.JobID,
			Filename: input.Filename,
			Status:   meta.Status,
		})
	}

	record := &storage.Batch{ID: batchID, SourceFolder: sourceFolder}
	if err := m.batches.CreateWithJobs(ctx, record, jobs); err != nil {
		return nil, fmt.Errorf("failed to persist batch: %w", err)
	}

	// Enqueue only after the batch record is committed, so the batch is
	// never observed before its full job list exists. An enqueue failure
	// fails that job in place without blocking its siblings.
	statuses := make([]string, len(jobs))
	for i, job := range jobs {
		statuses[i] = store.StatusQueued
		if err := m.queue.Enqueue(ctx, job.JobID, batchID); err != nil {
			_ = m.store.WriteError(job.JobID, "enqueue failed: "+err.Error(), 0)
			statuses[i] = store.StatusFailed
			summaries[i].Status = store.StatusFailed
		}
	}

	return &Status{
		BatchID:      batchID,
		SourceFolder: sourceFolder,
		CreatedAt:    record.CreatedAt,
		TotalJobs:    len(jobs),
		Status:       DeriveStatus(statuses),
		Counts:       CountStatuses(statuses),
		Jobs:         summaries,
	}, nil
}

// Get returns the derived aggregate status of a batch with per-job
// summaries in creation order.
func (m *Manager) Get(ctx context.Context, batchID string) (*Status, error) {
	record, err := m.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}

	jobs, err := m.batches.ListJobs(ctx, batchID)
	if err != nil {
		return nil, err
	}

	statuses := make([]string, 0, len(jobs))
	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		summary := JobSummary{JobID: job.JobID, Filename: job.Filename}
		meta, err := m.store.LoadMeta(job.JobID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			continue
		}
		summary.Status = meta.Status
		for _, format := range meta.ExportFormats {
			if m.store.HasArtifact(batchID, job.JobID, format) {
				summary.Available = append(summary.Available, format)
			}
		}
		statuses = append(statuses, meta.Status)
		summaries = append(summaries, summary)
	}

	return &Status{
		BatchID:      record.ID,
		SourceFolder: record.SourceFolder,
		CreatedAt:    record.CreatedAt,
		TotalJobs:    record.TotalJobs,
		Status:       DeriveStatus(statuses),
		Counts:       CountStatuses(statuses),
		Jobs:         summaries,
	}, nil
}

// Jobs returns the batch's member jobs in creation order, for downloads.
func (m *Manager) Jobs(ctx context.Context, batchID string) ([]storage.BatchJob, error) {
	record, err := m.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return m.batches.ListJobs(ctx, batchID)
}
