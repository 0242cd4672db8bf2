package model

import (
	"time"

	"gorm.io/datatypes"
)

type ImportKind string

const (
	ImportContestants ImportKind = "contestants"
	ImportSupervisors ImportKind = "supervisors"
	ImportScores      ImportKind = "scores"
)

func (k ImportKind) Valid() bool {
	switch k {
	case ImportContestants, ImportSupervisors, ImportScores:
		return true
	}
	return false
}

const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ImportJob tracks one uploaded spreadsheet through the import queue.
type ImportJob struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	Kind         ImportKind     `gorm:"size:20;not null" json:"kind"`
	FileName     string         `gorm:"size:255;not null" json:"file_name"`
	Payload      []byte         `gorm:"type:bytea" json:"-"`
	Status       string         `gorm:"size:20;not null;index" json:"status"`
	SuccessCount int            `gorm:"not null" json:"success_count"`
	ErrorCount   int            `gorm:"not null" json:"error_count"`
	Errors       datatypes.JSON `json:"errors,omitempty"`
	LastError    *string        `gorm:"type:text" json:"last_error,omitempty"`
	RequestedBy  uint           `json:"requested_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

func (j *ImportJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
