// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is a user's position in the moderation hierarchy.
type Role string

// Roles, ordered from least to most privileged.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleOwner     Role = "owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// Status is a user account's moderation lifecycle state.
type Status string

// Account statuses. Banned is terminal: no transition leads out of it.
const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
	StatusPending   Status = "pending"
)

// User represents a registered account on Tastebook.
type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Username            string     `gorm:"unique;not null" json:"username"`
	Email               string     `gorm:"unique;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	Avatar              string     `json:"avatar"`
	Bio                 string     `json:"bio"`
	Provider            string     `gorm:"default:email" json:"provider"`
	Role                Role       `gorm:"type:varchar(16);default:user;index" json:"role"`
	Status              Status     `gorm:"type:varchar(16);default:active;index" json:"status"`
	SuspensionReason    string     `json:"suspension_reason,omitempty"`
	SuspensionExpiresAt *time.Time `json:"suspension_expires_at,omitempty"`
	WarningCount        int        `gorm:"default:0" json:"warning_count"`
	IsVerified          bool       `gorm:"default:false" json:"is_verified"`
	LoginAttempts       int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Recipes             []Recipe   `gorm:"foreignKey:AuthorID" json:"recipes,omitempty"`
}

// Locked reports whether the account is in a login lockout window at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
