// Package policy encodes the role hierarchy and permission predicates.
// It is pure and stateless; every permission check in the application
// routes through it.
package policy

import "tastebook/internal/models"

// roleLevels defines the total order over roles. Higher level = more privilege.
var roleLevels = map[models.Role]int{
	models.RoleUser:      0,
	models.RoleModerator: 1,
	models.RoleAdmin:     2,
	models.RoleOwner:     3,
}

// Level returns the numeric privilege level of a role. Unknown roles map
// to -1 so they never pass a permission check.
func Level(role models.Role) int {
	if lvl, ok := roleLevels[role]; ok {
		return lvl
	}
	return -1
}

// HasPermission reports whether an actor with actorRole may perform actions
// that require requiredRole. Equal rank is sufficient.
func HasPermission(actorRole, requiredRole models.Role) bool {
	return Level(actorRole) >= Level(requiredRole)
}

// CanActOn reports whether an actor may moderate a target user. The actor
// must strictly outrank the target, so peers and superiors are protected,
// and acting on oneself is always refused.
func CanActOn(actorRole, targetRole models.Role) bool {
	return Level(actorRole) > Level(targetRole)
}

// CanAssignRole reports whether an actor may assign newRole to another user.
// Admins and above may assign any role except owner, which only an existing
// owner may hand out.
func CanAssignRole(actorRole, newRole models.Role) bool {
	if !newRole.Valid() {
		return false
	}
	if newRole == models.RoleOwner {
		return actorRole == models.RoleOwner
	}
	return HasPermission(actorRole, models.RoleAdmin)
}
