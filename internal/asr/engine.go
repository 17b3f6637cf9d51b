package asr

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedFormat is returned when the input file extension is not a
// recognized audio format.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// EngineError wraps failures from the audio decoder or the model runtime.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return "engine: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func engineErrf(err error) error {
	return &EngineError{Err: err}
}

// Options are the per-request decoding options.
type Options struct {
	Language  string `json:"language,omitempty"` // empty = auto-detect
	BeamSize  int    `json:"beam_size"`
	VadFilter bool   `json:"vad_filter"`
}

// Engine transcribes audio files.
type Engine interface {
	Transcribe(ctx context.Context, inputPath string, opts Options) (*Result, error)
}

// NormalizeLanguage maps user-supplied language values to a forced code or
// empty for auto-detection. Swagger UIs tend to submit the literal "string".
func NormalizeLanguage(language string) string {
	normalized := strings.ToLower(strings.TrimSpace(language))
	switch normalized {
	case "", "string", "auto":
		return ""
	}
	return normalized
}
