package model

import (
	"time"

	"contest_registry/internal/common"

	"gorm.io/gorm"
)

type CompetitionStatus string

const (
	CompetitionUpcoming CompetitionStatus = "upcoming"
	CompetitionOngoing  CompetitionStatus = "ongoing"
	CompetitionEnded    CompetitionStatus = "ended"
)

func (s CompetitionStatus) Valid() bool {
	switch s {
	case CompetitionUpcoming, CompetitionOngoing, CompetitionEnded:
		return true
	}
	return false
}

const (
	DefaultMaxScore                  = 100.0
	DefaultPassingScore              = 50.0
	DefaultCompetitionMaxContestants = 100
)

type Competition struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	Title          string            `gorm:"size:150;not null;index" json:"title"`
	Description    string            `gorm:"type:text" json:"description,omitempty"`
	StartDate      time.Time         `gorm:"type:date;not null;index" json:"start_date"`
	EndDate        time.Time         `gorm:"type:date;not null;index" json:"end_date"`
	MaxScore       float64           `gorm:"type:numeric(5,2);not null" json:"max_score"`
	PassingScore   float64           `gorm:"type:numeric(5,2);not null" json:"passing_score"`
	MaxContestants int               `gorm:"not null" json:"max_contestants"`
	Notes          string            `gorm:"type:text" json:"notes,omitempty"`
	Status         CompetitionStatus `gorm:"-" json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (c *Competition) Normalize() {
	c.Title = NormalizeText(c.Title)
	c.Description = NormalizeText(c.Description)
	c.StartDate = DateOnly(c.StartDate)
	c.EndDate = DateOnly(c.EndDate)
}

// StatusAt derives the lifecycle status from the calendar date of now. Both
// start and end days count as ongoing.
func (c *Competition) StatusAt(now time.Time) CompetitionStatus {
	today := DateOnly(now)
	switch {
	case today.Before(DateOnly(c.StartDate)):
		return CompetitionUpcoming
	case today.After(DateOnly(c.EndDate)):
		return CompetitionEnded
	default:
		return CompetitionOngoing
	}
}

// WithStatus fills the derived Status field and returns c.
func (c *Competition) WithStatus(now time.Time) *Competition {
	c.Status = c.StatusAt(now)
	return c
}

// WindowStart and WindowEnd bound accepted entry dates; the end day is included in full.
func (c *Competition) WindowStart() time.Time {
	return DateOnly(c.StartDate)
}

func (c *Competition) WindowEnd() time.Time {
	return DateOnly(c.EndDate).Add(24*time.Hour - time.Nanosecond)
}

func (c *Competition) InWindow(t time.Time) bool {
	return !t.Before(c.WindowStart()) && !t.After(c.WindowEnd())
}

func (c *Competition) IsPassing(score float64) bool {
	return score >= c.PassingScore
}

func (c *Competition) Validate() error {
	ve := &common.ValidationError{}
	if n := runeLen(c.Title); n < 3 || n > 150 {
		ve.Add("title", "must be between 3 and 150 characters")
	}
	if runeLen(c.Description) > 1000 {
		ve.Add("description", "must be at most 1000 characters")
	}
	if c.StartDate.IsZero() {
		ve.Add("start_date", "is required")
	}
	if c.EndDate.IsZero() {
		ve.Add("end_date", "is required")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !DateOnly(c.EndDate).After(DateOnly(c.StartDate)) {
		ve.Add("end_date", "must be after start date")
	}
	if c.MaxScore < 0 || c.MaxScore > 100 {
		ve.Add("max_score", "must be between 0 and 100")
	}
	if c.PassingScore < 0 || c.PassingScore > 100 {
		ve.Add("passing_score", "must be between 0 and 100")
	} else if c.PassingScore >= c.MaxScore {
		ve.Add("passing_score", "must be less than max score")
	}
	if c.MaxContestants < 1 {
		ve.Add("max_contestants", "must be at least 1")
	}
	return ve.OrNil()
}
