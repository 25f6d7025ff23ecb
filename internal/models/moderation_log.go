package models

import "time"

// TargetType identifies what kind of entity a moderation action touched.
type TargetType string

// Moderation target types.
const (
	TargetUser   TargetType = "user"
	TargetRecipe TargetType = "recipe"
)

// Moderation log action tags. Every privileged state change writes exactly
// one entry tagged with one of these.
const (
	ActionUserCreated     = "user_created"
	ActionUserSuspended   = "user_suspended"
	ActionUserUnsuspended = "user_unsuspended"
	ActionUserBanned      = "user_banned"
	ActionUserWarned      = "user_warned"
	ActionUserVerified    = "user_verified"
	ActionRoleChanged     = "role_changed"
	ActionRecipeApproved  = "recipe_approved"
	ActionRecipeRejected  = "recipe_rejected"
	ActionRecipeDeleted   = "recipe_deleted"
	ActionAccountLocked   = "account_locked"
)

// Sentinel identity for system-generated log entries (e.g. login lockouts).
const (
	SystemModeratorID       uint = 0
	SystemModeratorUsername      = "system"
)

// ModerationLogEntry is one row of the append-only audit log.
// The moderator username is denormalized at write time so the entry stays
// readable even if the moderator account is later renamed or removed from
// the hierarchy.
type ModerationLogEntry struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ModeratorID       uint       `gorm:"index" json:"moderator_id"`
	ModeratorUsername string     `gorm:"not null" json:"moderator_username"`
	TargetType        TargetType `gorm:"type:varchar(16);not null;index" json:"target_type"`
	TargetID          uint       `gorm:"not null;index" json:"target_id"`
	Action            string     `gorm:"not null;index" json:"action"`
	Reason            string     `json:"reason"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ModerationStats aggregates account and queue counts for admin dashboards.
type ModerationStats struct {
	TotalUsers     int64 `json:"total_users"`
	ActiveUsers    int64 `json:"active_users"`
	SuspendedUsers int64 `json:"suspended_users"`
	BannedUsers    int64 `json:"banned_users"`
	VerifiedUsers  int64 `json:"verified_users"`
	NewThisWeek    int64 `json:"new_this_week"`
	NewThisMonth   int64 `json:"new_this_month"`
	LockedAccounts int64 `json:"locked_accounts"`
	PendingRecipes int64 `json:"pending_recipes"`
}
