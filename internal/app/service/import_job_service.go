package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"
	"contest_registry/internal/platform/metrics"
	"contest_registry/internal/platform/spreadsheet"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobQueue hands job ids to the import worker.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

type ImportJobService struct {
	jobRepo  repository.ImportJobRepository
	importer *ImportService
	queue    JobQueue
}

func NewImportJobService(jobRepo repository.ImportJobRepository, importer *ImportService, queue JobQueue) *ImportJobService {
	return &ImportJobService{jobRepo: jobRepo, importer: importer, queue: queue}
}

// Enqueue stores the uploaded file as a job record and pushes its id to the queue.
// Unreadable files are refused here rather than failing later in the worker.
func (s *ImportJobService) Enqueue(ctx context.Context, kind model.ImportKind, fileName string, payload []byte, requestedBy uint) (*model.ImportJob, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown import kind %q: %w", kind, common.ErrBadRequest)
	}
	if _, err := spreadsheet.ReadRows(fileName, payload); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, fmt.Errorf("import queue is not configured: %w", common.ErrServiceUnavailable)
	}

	job := &model.ImportJob{
		ID:          uuid.NewString(),
		Kind:        kind,
		FileName:    fileName,
		Payload:     payload,
		Status:      model.JobStatusQueued,
		RequestedBy: requestedBy,
	}
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, common.Errorf("failed to create import job in DB: %w", err)
	}

	// Push job ID to Redis queue
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		msg := "could not be queued: " + err.Error()
		if uerr := s.jobRepo.UpdateJobStatus(ctx, job.ID, model.JobStatusFailed, &msg); uerr != nil {
			log.Printf("ERROR: failed to mark unqueued import job %s failed: %v", job.ID, uerr)
		}
		return nil, common.Errorf("failed to push import job %s to queue: %v: %w", job.ID, err, common.ErrServiceUnavailable)
	}

	log.Printf("Import job %s (%s, %s) enqueued successfully.", job.ID, kind, fileName)
	return job, nil
}

func (s *ImportJobService) Get(ctx context.Context, id string) (*model.ImportJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid job id: %w", common.ErrBadRequest)
	}
	return s.jobRepo.GetJobByID(ctx, id)
}

// RunInline imports a file synchronously without a job record.
func (s *ImportJobService) RunInline(ctx context.Context, kind model.ImportKind, fileName string, payload []byte) (*BatchResult, error) {
	rows, err := spreadsheet.ReadRows(fileName, payload)
	if err != nil {
		return nil, err
	}
	return s.importer.Import(ctx, kind, rows)
}

// Process runs one queued job to completion. Jobs that already finished are skipped,
// so a job id delivered twice is imported once.
func (s *ImportJobService) Process(ctx context.Context, jobID string) error {
	job, err := s.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load import job %s: %w", jobID, err)
	}
	if job.Finished() || job.Status == model.JobStatusProcessing {
		log.Printf("WARN: import job %s is already %s, skipping", jobID, job.Status)
		return nil
	}

	if err := s.jobRepo.UpdateJobStatus(ctx, jobID, model.JobStatusProcessing, nil); err != nil {
		return fmt.Errorf("failed to mark import job %s processing: %w", jobID, err)
	}

	result, err := s.RunInline(ctx, job.Kind, job.FileName, job.Payload)
	if err != nil {
		msg := err.Error()
		if uerr := s.jobRepo.UpdateJobStatus(ctx, jobID, model.JobStatusFailed, &msg); uerr != nil {
			log.Printf("ERROR: failed to mark import job %s failed: %v", jobID, uerr)
		}
		metrics.ImportJobs.WithLabelValues(model.JobStatusFailed).Inc()
		return fmt.Errorf("import job %s failed: %w", jobID, err)
	}

	rowErrors, err := json.Marshal(result.Errors)
	if err != nil {
		return common.Errorf("failed to marshal row errors of job %s: %w", jobID, err)
	}
	if err := s.jobRepo.FinishJob(ctx, jobID, result.SuccessCount, result.ErrorCount, datatypes.JSON(rowErrors)); err != nil {
		return fmt.Errorf("failed to finish import job %s: %w", jobID, err)
	}
	metrics.ImportJobs.WithLabelValues(model.JobStatusCompleted).Inc()
	log.Printf("INFO: import job %s completed: %d imported, %d failed", jobID, result.SuccessCount, result.ErrorCount)
	return nil
}
