package store

import (
	"time"

	"scriba/internal/export"
)

// Job statuses. A job moves queued -> running -> done|failed and never
// leaves a terminal state.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// IsTerminal reports whether a status is final.
func IsTerminal(status string) bool {
	return status == StatusDone || status == StatusFailed
}

// JobMeta is the metadata document persisted as meta.json in each job
// directory. It is the single source of truth for job state; external tools
// read it directly, so field names are part of the on-disk contract.
type JobMeta struct {
	BatchID  string `json:"batch_id"`
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`

	Language      string          `json:"language,omitempty"`
	BeamSize      int             `json:"beam_size"`
	VadFilter     bool            `json:"vad_filter"`
	ExportFormats []export.Format `json:"export_formats"`
	InputPath     string          `json:"input_path"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	ProcessTimeSeconds   float64 `json:"process_time_seconds,omitempty"`
	AudioDurationSeconds float64 `json:"audio_duration_seconds,omitempty"`
	DetectedLanguage     string  `json:"detected_language,omitempty"`

	ResultFiles map[string]string `json:"result_files"`
	Error       string            `json:"error,omitempty"`
}
