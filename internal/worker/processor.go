package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"scriba/internal/asr"
	"scriba/internal/export"
	"scriba/internal/store"
)

// Processor executes one job to completion: load input and options, run the
// engine, render the requested export formats, persist the outcome.
type Processor struct {
	store  *store.Store
	engine asr.Engine
}

// NewProcessor creates a processor.
func NewProcessor(jobStore *store.Store, engine asr.Engine) *Processor {
	return &Processor{store: jobStore, engine: engine}
}

// Process runs a single job. Transcription failures are contained: they are
// recorded as a failed terminal state with an error artifact and are never
// returned, so a bad file cannot crash a worker or block sibling jobs. A
// returned error means the job store itself failed. Jobs already in a
// terminal state are skipped, which makes duplicate queue delivery safe.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	meta, err := p.store.LoadMeta(jobID)
	if err != nil {
		return err
	}
	if store.IsTerminal(meta.Status) {
		return nil
	}

	start := time.Now()
	if _, err := p.store.MarkRunning(jobID); err != nil {
		return err
	}

	opts := asr.Options{
		Language:  meta.Language,
		BeamSize:  meta.BeamSize,
		VadFilter: meta.VadFilter,
	}
	result, err := p.engine.Transcribe(ctx, meta.InputPath, opts)
	if err != nil {
		return p.fail(jobID, err, elapsedSeconds(start))
	}

	renders := make(map[export.Format][]byte, len(meta.ExportFormats))
	for _, format := range meta.ExportFormats {
		content, renderErr := export.Render(result, format)
		if renderErr != nil {
			return p.fail(jobID, renderErr, elapsedSeconds(start))
		}
		renders[format] = content
	}

	return p.store.WriteResult(jobID, result, renders, elapsedSeconds(start))
}

// fail records the failure; only a store error propagates.
func (p *Processor) fail(jobID string, cause error, processTime float64) error {
	message := cause.Error()
	var engineErr *asr.EngineError
	switch {
	case errors.Is(cause, asr.ErrUnsupportedFormat):
		message = fmt.Sprintf("unsupported format: %s", cause)
	case errors.As(cause, &engineErr):
		message = fmt.Sprintf("engine error: %s", engineErr.Err)
	}
	return p.store.WriteError(jobID, message, processTime)
}

func elapsedSeconds(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*1000) / 1000
}
