// Package moderation implements the account and recipe moderation state
// machines. Transition functions mutate the target in memory and return a
// typed refusal; persisting the result atomically is the service layer's job.
package moderation

import (
	"fmt"
	"time"

	"tastebook/internal/models"
	"tastebook/internal/policy"
)

// Suspension duration bounds, in days.
const (
	MinSuspensionDays = 1
	MaxSuspensionDays = 365
)

// Suspend places the target into the suspended state until now + durationDays.
// Banned accounts cannot be suspended; banned is terminal.
func Suspend(actor, target *models.User, reason string, durationDays int, now time.Time) error {
	if !policy.CanActOn(actor.Role, target.Role) {
		return models.NewPermissionDeniedError("Cannot suspend a user with equal or higher role")
	}
	if target.Status == models.StatusBanned {
		return models.NewInvalidStateError("Cannot suspend a banned user")
	}
	if reason == "" {
		return models.NewValidationError("Suspension reason is required")
	}
	if durationDays < MinSuspensionDays || durationDays > MaxSuspensionDays {
		return models.NewValidationError(
			fmt.Sprintf("Suspension duration must be between %d and %d days", MinSuspensionDays, MaxSuspensionDays))
	}

	expires := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	target.Status = models.StatusSuspended
	target.SuspensionReason = reason
	target.SuspensionExpiresAt = &expires
	return nil
}

// LiftSuspension returns a suspended target to the active state and clears
// the suspension fields.
func LiftSuspension(actor, target *models.User) error {
	if !policy.CanActOn(actor.Role, target.Role) {
		return models.NewPermissionDeniedError("Cannot unsuspend a user with equal or higher role")
	}
	if target.Status != models.StatusSuspended {
		return models.NewInvalidStateError("User is not suspended")
	}

	clearSuspension(target)
	return nil
}

// Ban moves the target into the terminal banned state. The suspension reason
// field doubles as the ban reason. Session revocation is the caller's
// responsibility.
func Ban(actor, target *models.User, reason string) error {
	if !policy.CanActOn(actor.Role, target.Role) {
		return models.NewPermissionDeniedError("Cannot ban a user with equal or higher role")
	}
	if target.Status == models.StatusBanned {
		return models.NewInvalidStateError("User is already banned")
	}
	if reason == "" {
		return models.NewValidationError("Ban reason is required")
	}

	target.Status = models.StatusBanned
	target.SuspensionReason = reason
	target.SuspensionExpiresAt = nil
	return nil
}

// ChangeRole assigns newRole to the target. Requires admin rank, and the
// owner role may only be handed out by an existing owner.
func ChangeRole(actor, target *models.User, newRole models.Role) error {
	if !newRole.Valid() {
		return models.NewValidationError("Unknown role: " + string(newRole))
	}
	if !policy.HasPermission(actor.Role, models.RoleAdmin) {
		return models.NewPermissionDeniedError("Admin access required to change roles")
	}
	if !policy.CanAssignRole(actor.Role, newRole) {
		return models.NewPermissionDeniedError("Only an owner can assign the owner role")
	}

	target.Role = newRole
	return nil
}

// Warn increments the target's warning count. Warnings never decrease.
func Warn(actor, target *models.User, reason string) error {
	if !policy.CanActOn(actor.Role, target.Role) {
		return models.NewPermissionDeniedError("Cannot warn a user with equal or higher role")
	}
	if reason == "" {
		return models.NewValidationError("Warning reason is required")
	}

	target.WarningCount++
	return nil
}

// Verify marks the target account as verified.
func Verify(actor, target *models.User) error {
	if !policy.HasPermission(actor.Role, models.RoleModerator) {
		return models.NewPermissionDeniedError("Moderator access required")
	}
	if target.IsVerified {
		return models.NewInvalidStateError("User is already verified")
	}

	target.IsVerified = true
	return nil
}

// ReconcileSuspension applies passive suspension expiry: if the user is
// suspended and the expiry has passed, the account becomes active again and
// the suspension fields are cleared. Returns true if the user was changed.
// Callers must persist the change under the same per-entity update as any
// transition they are about to perform, so reconciliation cannot race with
// an explicit lift or ban.
func ReconcileSuspension(u *models.User, now time.Time) bool {
	if u.Status != models.StatusSuspended {
		return false
	}
	if u.SuspensionExpiresAt == nil || u.SuspensionExpiresAt.After(now) {
		return false
	}

	clearSuspension(u)
	return true
}

func clearSuspension(u *models.User) {
	u.Status = models.StatusActive
	u.SuspensionReason = ""
	u.SuspensionExpiresAt = nil
}
