// Package worker pulls job references from the durable queue and executes
// them sequentially. Run several worker processes for parallelism across
// jobs; the queue's atomic claim keeps each job on exactly one worker.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"scriba/internal/storage"
)

// Worker polls the queue and processes claimed jobs one at a time.
type Worker struct {
	queue     *storage.QueueRepository
	processor *Processor
	workerID  string
	interval  time.Duration
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New creates a worker.
func New(queue *storage.QueueRepository, processor *Processor, workerID string) *Worker {
	return &Worker{
		queue:     queue,
		processor: processor,
		workerID:  workerID,
		interval:  1 * time.Second,
		stop:      make(chan struct{}),
	}
}

// SetInterval sets the queue polling interval.
func (w *Worker) SetInterval(interval time.Duration) {
	if interval > 0 {
		w.interval = interval
	}
}

// Start begins processing jobs in the background.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	log.Printf("Worker %s started", w.workerID)
}

// Stop waits for the current job to finish and stops the worker.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Printf("Worker %s stopped", w.workerID)
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and processes jobs until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		item, err := w.queue.Claim(ctx, w.workerID)
		if err != nil {
			log.Printf("Error claiming next job: %v", err)
			return
		}
		if item == nil {
			return
		}

		log.Printf("Processing job %s (batch %s)", item.JobID, item.BatchID)
		if err := w.processor.Process(ctx, item.JobID); err != nil {
			// Store-level failure; the job's own outcome is already
			// recorded when possible. Consume the message either way:
			// the system never retries on its own.
			log.Printf("Job %s processing error: %v", item.JobID, err)
		} else {
			log.Printf("Job %s finished", item.JobID)
		}

		if err := w.queue.Finish(ctx, item.JobID); err != nil {
			log.Printf("Error finishing queue item %s: %v", item.JobID, err)
		}
	}
}
