package models

import (
	"strings"
	"time"
)

// Role is the perspective a user acts under.
type Role string

const (
	RoleTenant    Role = "tenant"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Perspective returns the ledger perspective owned by users of this role.
// Admins own no ledger.
func (r Role) Perspective() (Perspective, bool) {
	switch r {
	case RoleTenant:
		return PerspectiveTenant, true
	case RoleOrganizer:
		return PerspectiveOrganizer, true
	}
	return "", false
}

// User represents the user model in the database
type User struct {
	Base
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	BusinessName     string     `json:"business_name,omitempty"`
	Role             Role       `gorm:"type:varchar(16);not null;index" json:"role"`
	PlanTier         string     `gorm:"size:32" json:"plan_tier"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
}

// DisplayName prefers the business name, then the personal name, then the email.
func (u *User) DisplayName() string {
	if u.BusinessName != "" {
		return u.BusinessName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}
