package models

import (
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   uint
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsStaff reports whether the principal is an admin or a manager.
func (p Principal) IsStaff() bool {
	switch p.Role {
	case RoleAdmin, RoleManager:
		return true
	case RoleEmployee:
		return false
	default:
		return false
	}
}

// User represents a user account in the system
type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Authentication fields
	Username       string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email          string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string `gorm:"not null" json:"-"`
	Role           Role   `gorm:"size:20;not null;default:'employee'" json:"role"`
	EmailConfirmed bool   `gorm:"default:false" json:"email_confirmed"`

	// Profile information
	AvatarURL *string `json:"avatar_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal returns the access-control view of the user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}

// EmailConfirmation holds a pending email confirmation token.
// A user has at most one; issuing a new one replaces the old.
type EmailConfirmation struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Token     string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is no longer usable at now.
func (e *EmailConfirmation) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
