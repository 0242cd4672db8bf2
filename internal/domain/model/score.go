package model

import (
	"time"

	"contest_registry/internal/common"

	"gorm.io/gorm"
)

type Score struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ContestantID  uint           `gorm:"not null;uniqueIndex:idx_scores_contestant_competition,where:deleted_at IS NULL" json:"contestant_id"`
	CompetitionID uint           `gorm:"not null;index;uniqueIndex:idx_scores_contestant_competition,where:deleted_at IS NULL" json:"competition_id"`
	SupervisorID  uint           `gorm:"not null;index" json:"supervisor_id"`
	ScoreValue    float64        `gorm:"type:numeric(5,2);not null" json:"score_value"`
	EntryDate     time.Time      `gorm:"not null" json:"entry_date"`
	Notes         string         `gorm:"size:500" json:"notes,omitempty"`
	Passed        *bool          `gorm:"-" json:"passed,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Validate checks the score against its already-loaded competition.
func (s *Score) Validate(c *Competition) error {
	ve := &common.ValidationError{}
	if s.ScoreValue < 0 || s.ScoreValue > 100 {
		ve.Add("score_value", "must be between 0 and 100")
	} else if s.ScoreValue > c.MaxScore {
		ve.Add("score_value", "exceeds the competition's max score")
	}
	if s.EntryDate.IsZero() {
		ve.Add("entry_date", "is required")
	} else if !c.InWindow(s.EntryDate) {
		ve.Add("entry_date", "must fall within the competition period")
	}
	if runeLen(s.Notes) > 500 {
		ve.Add("notes", "must be at most 500 characters")
	}
	return ve.OrNil()
}

// WithResult fills Passed from the competition's passing score and returns s.
func (s *Score) WithResult(c *Competition) *Score {
	passed := c.IsPassing(s.ScoreValue)
	s.Passed = &passed
	return s
}

// ResultLabel is the pass/fail label used in exports.
func ResultLabel(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
