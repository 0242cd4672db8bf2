package model

import (
	"time"

	"contest_registry/internal/common"

	"gorm.io/gorm"
)

const (
	MinContestantAge = 5
	MaxContestantAge = 25
)

type Contestant struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"size:100;not null;index" json:"name"`
	BirthDate          time.Time      `gorm:"type:date;not null" json:"birth_date"`
	Address            string         `gorm:"size:200" json:"address,omitempty"`
	EducationLevel     string         `gorm:"size:50;not null" json:"education_level"`
	RegistrationNumber string         `gorm:"size:20;not null;uniqueIndex" json:"registration_number"`
	IsActive           bool           `gorm:"not null" json:"is_active"`
	SupervisorID       *uint          `gorm:"index" json:"supervisor_id,omitempty"`
	Notes              string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// Age is the difference of calendar years; the birthday itself is not considered.
func (c *Contestant) Age(now time.Time) int {
	return now.Year() - c.BirthDate.Year()
}

func (c *Contestant) Normalize() {
	c.Name = NormalizeText(c.Name)
	c.Address = NormalizeText(c.Address)
	c.EducationLevel = NormalizeText(c.EducationLevel)
	c.RegistrationNumber = NormalizeText(c.RegistrationNumber)
	c.BirthDate = DateOnly(c.BirthDate)
}

func (c *Contestant) Validate(now time.Time) error {
	ve := &common.ValidationError{}
	if n := runeLen(c.Name); n < 2 || n > 100 {
		ve.Add("name", "must be between 2 and 100 characters")
	}
	if c.BirthDate.IsZero() {
		ve.Add("birth_date", "is required")
	} else if age := c.Age(now); age < MinContestantAge || age > MaxContestantAge {
		ve.Add("birth_date", "age must be between 5 and 25 years")
	}
	if runeLen(c.Address) > 200 {
		ve.Add("address", "must be at most 200 characters")
	}
	if c.EducationLevel == "" {
		ve.Add("education_level", "is required")
	} else if runeLen(c.EducationLevel) > 50 {
		ve.Add("education_level", "must be at most 50 characters")
	}
	if runeLen(c.RegistrationNumber) > 20 {
		ve.Add("registration_number", "must be at most 20 characters")
	}
	return ve.OrNil()
}

// SupervisedBy reports whether id is the contestant's assigned supervisor.
func (c *Contestant) SupervisedBy(id uint) bool {
	return c.SupervisorID != nil && *c.SupervisorID == id
}
