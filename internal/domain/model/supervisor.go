package model

import (
	"time"

	"contest_registry/internal/common"

	"gorm.io/gorm"
)

const (
	DefaultSupervisorCapacity = 10
	MaxSupervisorCapacity     = 50
)

type Supervisor struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:100;not null;index" json:"name"`
	HireDate       time.Time      `gorm:"type:date;not null" json:"hire_date"`
	Department     string         `gorm:"size:100;not null" json:"department"`
	Qualification  string         `gorm:"size:100;not null" json:"qualification"`
	EmployeeID     string         `gorm:"size:50;not null;uniqueIndex" json:"employee_id"`
	IsActive       bool           `gorm:"not null" json:"is_active"`
	MaxContestants int            `gorm:"not null" json:"max_contestants"`
	Notes          string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Normalize trims and NFC-normalises the free-text fields.
func (s *Supervisor) Normalize() {
	s.Name = NormalizeText(s.Name)
	s.Department = NormalizeText(s.Department)
	s.Qualification = NormalizeText(s.Qualification)
	s.EmployeeID = NormalizeText(s.EmployeeID)
	s.HireDate = DateOnly(s.HireDate)
}

// Validate checks field rules. An empty EmployeeID is allowed; it is assigned on create.
func (s *Supervisor) Validate(now time.Time) error {
	ve := &common.ValidationError{}
	if n := runeLen(s.Name); n < 2 || n > 100 {
		ve.Add("name", "must be between 2 and 100 characters")
	}
	if s.HireDate.IsZero() {
		ve.Add("hire_date", "is required")
	} else if DateOnly(s.HireDate).After(DateOnly(now)) {
		ve.Add("hire_date", "cannot be in the future")
	}
	if s.Department == "" {
		ve.Add("department", "is required")
	} else if runeLen(s.Department) > 100 {
		ve.Add("department", "must be at most 100 characters")
	}
	if s.Qualification == "" {
		ve.Add("qualification", "is required")
	} else if runeLen(s.Qualification) > 100 {
		ve.Add("qualification", "must be at most 100 characters")
	}
	if runeLen(s.EmployeeID) > 50 {
		ve.Add("employee_id", "must be at most 50 characters")
	}
	if s.MaxContestants < 1 || s.MaxContestants > MaxSupervisorCapacity {
		ve.Add("max_contestants", "must be between 1 and 50")
	}
	return ve.OrNil()
}

// StatusLabel is the human label used in exports.
func (s *Supervisor) StatusLabel() string {
	if s.IsActive {
		return "active"
	}
	return "inactive"
}
