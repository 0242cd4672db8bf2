package model

import (
	"time"

	"contest_registry/internal/common"
	"contest_registry/internal/common/security"

	"gorm.io/gorm"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const MinPasswordLength = 6

// Rank orders roles: viewer < editor < admin. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Allows reports whether r is at least required.
func (r Role) Allows(required Role) bool {
	return r.Valid() && r.Rank() >= required.Rank()
}

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:50;not null;uniqueIndex" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         Role           `gorm:"size:20;not null" json:"role"`
	FullName     string         `gorm:"size:100;not null" json:"full_name"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	LastLogin    *time.Time     `json:"last_login,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) HasPermission(required Role) bool {
	return u.Role.Allows(required)
}

// SetPassword replaces the stored hash. The plaintext is never kept.
func (u *User) SetPassword(password string) error {
	if len(password) < MinPasswordLength {
		return common.NewValidationError("password", "must be at least 6 characters")
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return common.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return u.PasswordHash != "" && security.CheckPasswordHash(password, u.PasswordHash)
}

func (u *User) Validate() error {
	ve := &common.ValidationError{}
	if n := runeLen(u.Username); n < 3 || n > 50 {
		ve.Add("username", "must be between 3 and 50 characters")
	}
	if u.FullName == "" {
		ve.Add("full_name", "is required")
	}
	if !u.Role.Valid() {
		ve.Add("role", "must be one of viewer, editor, admin")
	}
	if u.PasswordHash == "" {
		ve.Add("password", "is required")
	}
	return ve.OrNil()
}
