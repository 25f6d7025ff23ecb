package moderation

import (
	"tastebook/internal/models"
	"tastebook/internal/policy"
)

// ApproveRecipe moves a pending recipe to approved and publishes it.
// Moderation actions are guarded state changes, not idempotent no-ops:
// approving an already-approved recipe is refused.
func ApproveRecipe(actor *models.User, recipe *models.Recipe, notes string) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	if recipe.ModerationStatus != models.RecipePending {
		return models.NewInvalidStateError("Only pending recipes can be approved")
	}

	recipe.ModerationStatus = models.RecipeApproved
	recipe.IsPublished = true
	recipe.ModerationNotes = notes
	return nil
}

// RejectRecipe moves a pending recipe to rejected and keeps it unpublished.
func RejectRecipe(actor *models.User, recipe *models.Recipe, notes string) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	if recipe.ModerationStatus != models.RecipePending {
		return models.NewInvalidStateError("Only pending recipes can be rejected")
	}

	recipe.ModerationStatus = models.RecipeRejected
	recipe.IsPublished = false
	recipe.ModerationNotes = notes
	return nil
}

// AuthorizeRecipeDelete checks whether the actor may delete a recipe.
// Deletion is permitted from any moderation status; only the audit log entry
// survives it.
func AuthorizeRecipeDelete(actor *models.User) error {
	return requireModerator(actor)
}

// Resubmit returns a rejected recipe to the pending queue. Only the author
// may resubmit, and only from the rejected state; the previous review notes
// are cleared.
func Resubmit(author *models.User, recipe *models.Recipe) error {
	if recipe.AuthorID != author.ID {
		return models.NewPermissionDeniedError("Only the author can resubmit a recipe")
	}
	if recipe.ModerationStatus != models.RecipeRejected {
		return models.NewInvalidStateError("Only rejected recipes can be resubmitted")
	}

	recipe.ModerationStatus = models.RecipePending
	recipe.IsPublished = false
	recipe.ModerationNotes = ""
	return nil
}

// requireModerator gates recipe moderation: any moderator-or-above may act on
// any recipe, regardless of who authored it.
func requireModerator(actor *models.User) error {
	if !policy.HasPermission(actor.Role, models.RoleModerator) {
		return models.NewPermissionDeniedError("Moderator access required")
	}
	return nil
}
