package worker

import (
	"context"
	"errors"
	"log"
	"time"
)

// JobSource is the queue side of import processing. queue.ImportQueue implements it.
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Requeue(ctx context.Context, jobID string) error
	AcquireLock(ctx context.Context) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, token string) (bool, error)
}

// JobProcessor runs one import job to completion and records its outcome.
type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

type ImportWorker struct {
	source    JobSource
	processor JobProcessor

	PopTimeout time.Duration
	RetryDelay time.Duration
}

func NewImportWorker(source JobSource, processor JobProcessor) *ImportWorker {
	return &ImportWorker{
		source:     source,
		processor:  processor,
		PopTimeout: 5 * time.Second,
		RetryDelay: time.Second,
	}
}

// Start pops job ids until ctx is cancelled. Jobs run one at a time across all workers.
func (w *ImportWorker) Start(ctx context.Context) {
	log.Println("INFO: Import worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO: Import worker stopping...")
			return
		default:
		}

		jobID, err := w.source.Pop(ctx, w.PopTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("ERROR: Failed to pop from import queue: %v", err)
			w.pause(ctx)
			continue
		}
		if jobID == "" {
			continue
		}

		log.Printf("INFO: Worker picked up import job %s", jobID)
		if !w.processJobWithLock(ctx, jobID) {
			// Another worker holds the lock; give it time before the job comes around again.
			w.pause(ctx)
		}
	}
}

// processJobWithLock reports false when the job was handed back to the queue.
func (w *ImportWorker) processJobWithLock(ctx context.Context, jobID string) bool {
	token, ok, err := w.source.AcquireLock(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to attempt import lock for job %s: %v", jobID, err)
		w.requeueJob(ctx, jobID)
		return false
	}
	if !ok {
		log.Printf("INFO: Import lock busy, re-queueing job %s", jobID)
		w.requeueJob(ctx, jobID)
		return false
	}

	defer func() {
		// Release with a fresh context so shutdown does not leave the lock behind until TTL.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		released, err := w.source.ReleaseLock(releaseCtx, token)
		switch {
		case err != nil:
			log.Printf("ERROR: Failed to release import lock (job %s): %v", jobID, err)
		case released:
			log.Printf("INFO: Released import lock for job %s", jobID)
		default:
			log.Printf("WARN: Import lock for job %s expired or was taken by another worker", jobID)
		}
	}()

	if err := w.processor.Process(ctx, jobID); err != nil {
		log.Printf("ERROR: Import job %s failed: %v", jobID, err)
	}
	return true
}

func (w *ImportWorker) requeueJob(ctx context.Context, jobID string) {
	if err := w.source.Requeue(ctx, jobID); err != nil {
		log.Printf("ERROR: Failed to re-queue import job %s: %v", jobID, err)
	}
}

func (w *ImportWorker) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.RetryDelay):
	}
}
