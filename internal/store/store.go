// Package store persists jobs on disk. Each job lives in its own directory
// under data/batches/<batch_id>/<job_id>/ holding the raw input, a meta.json
// document, one result file per exported format and an error.txt on failure.
// The layout is a durable contract read by external tools.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"scriba/internal/asr"
	"scriba/internal/export"
)

// ErrNotFound is returned when a job, batch or artifact does not exist on
// disk. It is distinct from "job exists but has not finished yet".
var ErrNotFound = errors.New("not found")

// Store is the filesystem job store.
type Store struct {
	root string
}

// New creates a store rooted at the given data directory.
func New(root string) *Store {
	return &Store{root: root}
}

// EnsureDirs creates the batches and job index directories.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.batchesRoot(), s.jobIndexRoot()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return nil
}

func (s *Store) batchesRoot() string {
	return filepath.Join(s.root, "batches")
}

func (s *Store) jobIndexRoot() string {
	return filepath.Join(s.root, "jobs")
}

// BatchDir returns the directory holding a batch's job directories.
func (s *Store) BatchDir(batchID string) string {
	return filepath.Join(s.batchesRoot(), batchID)
}

// JobDir returns a job's directory.
func (s *Store) JobDir(batchID, jobID string) string {
	return filepath.Join(s.BatchDir(batchID), jobID)
}

func (s *Store) metaPath(batchID, jobID string) string {
	return filepath.Join(s.JobDir(batchID, jobID), "meta.json")
}

func (s *Store) jobIndexPath(jobID string) string {
	return filepath.Join(s.jobIndexRoot(), jobID+".json")
}

// ArtifactPath returns the path of one export artifact.
func (s *Store) ArtifactPath(batchID, jobID string, format export.Format) string {
	return filepath.Join(s.JobDir(batchID, jobID), "result."+string(format))
}

// HasArtifact reports whether an export artifact exists.
func (s *Store) HasArtifact(batchID, jobID string, format export.Format) bool {
	_, err := os.Stat(s.ArtifactPath(batchID, jobID, format))
	return err == nil
}

// Create persists a new queued job under the batch directory and returns its
// metadata. The input bytes are written as input.<ext>.
func (s *Store) Create(batchID string, input []byte, filename string, opts asr.Options, formats []export.Format) (*JobMeta, error) {
	jobID := uuid.New().String()
	jobDir := s.JobDir(batchID, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".tmp"
	}
	inputPath := filepath.Join(jobDir, "input"+ext)
	if err := os.WriteFile(inputPath, input, 0644); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	now := time.Now().UTC()
	meta := &JobMeta{
		BatchID:       batchID,
		JobID:         jobID,
		Filename:      filename,
		Status:        StatusQueued,
		Language:      opts.Language,
		BeamSize:      opts.BeamSize,
		VadFilter:     opts.VadFilter,
		ExportFormats: formats,
		InputPath:     inputPath,
		CreatedAt:     now,
		UpdatedAt:     now,
		ResultFiles:   map[string]string{},
	}
	if err := s.writeMeta(meta); err != nil {
		return nil, err
	}
	if err := writeJSON(s.jobIndexPath(jobID), map[string]string{"job_id": jobID, "batch_id": batchID}); err != nil {
		return nil, err
	}
	return meta, nil
}

// FindBatchForJob resolves the batch owning a job via the job index.
func (s *Store) FindBatchForJob(jobID string) (string, error) {
	data, err := os.ReadFile(s.jobIndexPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return "", err
	}
	var index struct {
		BatchID string `json:"batch_id"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return "", fmt.Errorf("corrupt job index for %s: %w", jobID, err)
	}
	return index.BatchID, nil
}

// LoadMeta reads a job's metadata document.
func (s *Store) LoadMeta(jobID string) (*JobMeta, error) {
	batchID, err := s.FindBatchForJob(jobID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.metaPath(batchID, jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return nil, err
	}
	var meta JobMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt meta for job %s: %w", jobID, err)
	}
	return &meta, nil
}

// MarkRunning transitions a job to running and records the start time.
func (s *Store) MarkRunning(jobID string) (*JobMeta, error) {
	return s.updateMeta(jobID, func(meta *JobMeta) {
		now := time.Now().UTC()
		meta.Status = StatusRunning
		meta.StartedAt = &now
	})
}

// WriteResult persists the rendered export artifacts and marks the job done.
// It is idempotent: writing the same payload twice leaves identical
// artifacts. Written after WriteError it wins, clearing the error record.
func (s *Store) WriteResult(jobID string, result *asr.Result, renders map[export.Format][]byte, processTime float64) error {
	batchID, err := s.FindBatchForJob(jobID)
	if err != nil {
		return err
	}

	resultFiles := make(map[string]string, len(renders))
	for format, content := range renders {
		path := s.ArtifactPath(batchID, jobID, format)
		if err := os.WriteFile(path, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s artifact: %w", format, err)
		}
		resultFiles[string(format)] = path
	}

	_, err = s.updateMeta(jobID, func(meta *JobMeta) {
		now := time.Now().UTC()
		meta.Status = StatusDone
		meta.FinishedAt = &now
		meta.ProcessTimeSeconds = processTime
		meta.AudioDurationSeconds = result.Duration
		meta.DetectedLanguage = result.Language
		meta.ResultFiles = resultFiles
		meta.Error = ""
	})
	if err != nil {
		return err
	}

	// A result written after an error supersedes it.
	_ = os.Remove(filepath.Join(s.JobDir(batchID, jobID), "error.txt"))
	return nil
}

// WriteError records a failure: an error.txt artifact next to the input and
// a failed terminal status in the metadata.
func (s *Store) WriteError(jobID, message string, processTime float64) error {
	batchID, err := s.FindBatchForJob(jobID)
	if err != nil {
		return err
	}
	errPath := filepath.Join(s.JobDir(batchID, jobID), "error.txt")
	if err := os.WriteFile(errPath, []byte(message), 0644); err != nil {
		return fmt.Errorf("failed to write error artifact: %w", err)
	}

	_, err = s.updateMeta(jobID, func(meta *JobMeta) {
		now := time.Now().UTC()
		meta.Status = StatusFailed
		meta.FinishedAt = &now
		meta.ProcessTimeSeconds = processTime
		meta.Error = message
	})
	return err
}

// ReadExport returns the bytes of one export artifact.
func (s *Store) ReadExport(jobID string, format export.Format) ([]byte, error) {
	batchID, err := s.FindBatchForJob(jobID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.ArtifactPath(batchID, jobID, format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s for job %s: %w", format, jobID, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) updateMeta(jobID string, mutate func(*JobMeta)) (*JobMeta, error) {
	meta, err := s.LoadMeta(jobID)
	if err != nil {
		return nil, err
	}
	mutate(meta)
	meta.UpdatedAt = time.Now().UTC()
	if err := s.writeMeta(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *Store) writeMeta(meta *JobMeta) error {
	return writeJSON(s.metaPath(meta.BatchID, meta.JobID), meta)
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
