package repository

import (
	"context"
	"time"

	"contest_registry/internal/domain/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ImportJobRepository interface {
	CreateJob(ctx context.Context, job *model.ImportJob) error
	GetJobByID(ctx context.Context, id string) (*model.ImportJob, error)
	UpdateJobStatus(ctx context.Context, id, status string, lastError *string) error
	// FinishJob records the outcome counts and marks the job completed.
	FinishJob(ctx context.Context, id string, success, failed int, errors datatypes.JSON) error
}

type gormImportJobRepository struct {
	db *gorm.DB
}

func (r *gormImportJobRepository) CreateJob(ctx context.Context, job *model.ImportJob) error {
	return translateError("create import job", r.db.WithContext(ctx).Create(job).Error)
}

func (r *gormImportJobRepository) GetJobByID(ctx context.Context, id string) (*model.ImportJob, error) {
	var job model.ImportJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, translateError("find import job", err)
	}
	return &job, nil
}

func (r *gormImportJobRepository) UpdateJobStatus(ctx context.Context, id, status string, lastError *string) error {
	updates := map[string]any{"status": status, "last_error": lastError}
	if status == model.JobStatusFailed {
		updates["finished_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&model.ImportJob{}).Where("id = ?", id).Updates(updates)
	if res.Error == nil && res.RowsAffected == 0 {
		return translateError("update import job", gorm.ErrRecordNotFound)
	}
	return translateError("update import job", res.Error)
}

func (r *gormImportJobRepository) FinishJob(ctx context.Context, id string, success, failed int, errors datatypes.JSON) error {
	res := r.db.WithContext(ctx).Model(&model.ImportJob{}).Where("id = ?", id).Updates(map[string]any{
		"status":        model.JobStatusCompleted,
		"success_count": success,
		"error_count":   failed,
		"errors":        errors,
		"finished_at":   time.Now(),
		"payload":       nil,
	})
	if res.Error == nil && res.RowsAffected == 0 {
		return translateError("finish import job", gorm.ErrRecordNotFound)
	}
	return translateError("finish import job", res.Error)
}
