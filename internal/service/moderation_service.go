// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"
	"fmt"
	"time"

	"tastebook/internal/middleware"
	"tastebook/internal/models"
	"tastebook/internal/moderation"
	"tastebook/internal/policy"
	"tastebook/internal/repository"
	"tastebook/internal/sessions"
)

// Commands carried by the moderation endpoints. Each operation has its own
// typed command dispatched through a typed method; there is no string-keyed
// action dispatch anywhere.
type (
	SuspendCommand struct {
		ActorID      uint
		TargetID     uint
		Reason       string
		DurationDays int
	}

	UnsuspendCommand struct {
		ActorID  uint
		TargetID uint
	}

	BanCommand struct {
		ActorID  uint
		TargetID uint
		Reason   string
	}

	WarnCommand struct {
		ActorID  uint
		TargetID uint
		Reason   string
	}

	VerifyCommand struct {
		ActorID  uint
		TargetID uint
	}

	ChangeRoleCommand struct {
		ActorID  uint
		TargetID uint
		NewRole  models.Role
	}

	ApproveRecipeCommand struct {
		ActorID  uint
		RecipeID uint
		Notes    string
	}

	RejectRecipeCommand struct {
		ActorID  uint
		RecipeID uint
		Notes    string
	}

	DeleteRecipeCommand struct {
		ActorID  uint
		RecipeID uint
	}

	ResubmitRecipeCommand struct {
		ActorID  uint
		RecipeID uint
	}
)

// ModerationService is the single entry point for privileged state changes
// against users and recipes. Every operation loads actor and target, runs
// the policy and state-machine checks, and persists the updated entity
// together with exactly one audit log entry in one transaction. Nothing is
// persisted when a check refuses.
type ModerationService struct {
	store    repository.ModerationStore
	sessions sessions.Revoker
	now      func() time.Time
}

// NewModerationService returns a ModerationService backed by the given
// persistence and session collaborators.
func NewModerationService(store repository.ModerationStore, revoker sessions.Revoker) *ModerationService {
	return &ModerationService{
		store:    store,
		sessions: revoker,
		now:      time.Now,
	}
}

// SuspendUser suspends the target for the commanded number of days.
func (s *ModerationService) SuspendUser(ctx context.Context, cmd SuspendCommand) (*models.User, error) {
	return s.runUserAction(ctx, cmd.ActorID, cmd.TargetID, models.ActionUserSuspended,
		func(actor, target *models.User) (string, error) {
			if err := moderation.Suspend(actor, target, cmd.Reason, cmd.DurationDays, s.now()); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s (%d days)", cmd.Reason, cmd.DurationDays), nil
		})
}

// UnsuspendUser lifts the target's suspension.
func (s *ModerationService) UnsuspendUser(ctx context.Context, cmd UnsuspendCommand) (*models.User, error) {
	return s.runUserAction(ctx, cmd.ActorID, cmd.TargetID, models.ActionUserUnsuspended,
		func(actor, target *models.User) (string, error) {
			if err := moderation.LiftSuspension(actor, target); err != nil {
				return "", err
			}
			return "Suspension lifted", nil
		})
}

// BanUser permanently bans the target and revokes all their sessions.
func (s *ModerationService) BanUser(ctx context.Context, cmd BanCommand) (*models.User, error) {
	user, err := s.runUserAction(ctx, cmd.ActorID, cmd.TargetID, models.ActionUserBanned,
		func(actor, target *models.User) (string, error) {
			if err := moderation.Ban(actor, target, cmd.Reason); err != nil {
				return "", err
			}
			return cmd.Reason, nil
		})
	if err != nil {
		return nil, err
	}

	// Session revocation happens after commit; a revocation failure leaves
	// the ban in place and is only logged, since the tokens expire anyway.
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		middleware.Logger.Warn("failed to revoke sessions for banned user",
			"user_id", user.ID, "error", err.Error())
	}
	return user, nil
}

// WarnUser records a warning against the target.
func (s *ModerationService) WarnUser(ctx context.Context, cmd WarnCommand) (*models.User, error) {
	return s.runUserAction(ctx, cmd.ActorID, cmd.TargetID, models.ActionUserWarned,
		func(actor, target *models.User) (string, error) {
			if err := moderation.Warn(actor, target, cmd.Reason); err != nil {
				return "", err
			}
			return cmd.Reason, nil
		})
}

// VerifyUser marks the target account as verified.
func (s *ModerationService) VerifyUser(ctx context.Context, cmd VerifyCommand) (*models.User, error) {
	return s.runUserAction(ctx, cmd.ActorID, cmd.TargetID, models.ActionUserVerified,
		func(actor, target *models.User) (string, error) {
			if err := moderation.Verify(actor, target); err != nil {
				return "", err
			}
			return "Account verified", nil
		})
}

// ChangeUserRole assigns a new role to the target.
func (s *ModerationService) ChangeUserRole(ctx context.Context, cmd ChangeRoleCommand) (*models.User, error) {
	return s.runUserAction(ctx, cmd.ActorID, cmd.TargetID, models.ActionRoleChanged,
		func(actor, target *models.User) (string, error) {
			oldRole := target.Role
			if err := moderation.ChangeRole(actor, target, cmd.NewRole); err != nil {
				return "", err
			}
			return fmt.Sprintf("Role changed from %s to %s", oldRole, cmd.NewRole), nil
		})
}

// ApproveRecipe publishes a pending recipe.
func (s *ModerationService) ApproveRecipe(ctx context.Context, cmd ApproveRecipeCommand) (*models.Recipe, error) {
	return s.runRecipeAction(ctx, cmd.ActorID, cmd.RecipeID, models.ActionRecipeApproved,
		func(actor *models.User, recipe *models.Recipe) (string, error) {
			if err := moderation.ApproveRecipe(actor, recipe, cmd.Notes); err != nil {
				return "", err
			}
			return cmd.Notes, nil
		})
}

// RejectRecipe turns down a pending recipe.
func (s *ModerationService) RejectRecipe(ctx context.Context, cmd RejectRecipeCommand) (*models.Recipe, error) {
	return s.runRecipeAction(ctx, cmd.ActorID, cmd.RecipeID, models.ActionRecipeRejected,
		func(actor *models.User, recipe *models.Recipe) (string, error) {
			if err := moderation.RejectRecipe(actor, recipe, cmd.Notes); err != nil {
				return "", err
			}
			return cmd.Notes, nil
		})
}

// DeleteRecipe removes a recipe from the active set. The recipe content is
// gone afterwards; only the audit log entry remains.
func (s *ModerationService) DeleteRecipe(ctx context.Context, cmd DeleteRecipeCommand) error {
	err := s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		actor, err := tx.GetUser(ctx, cmd.ActorID)
		if err != nil {
			return err
		}
		recipe, err := tx.GetRecipe(ctx, cmd.RecipeID)
		if err != nil {
			return err
		}
		if err := moderation.AuthorizeRecipeDelete(actor); err != nil {
			return err
		}
		if err := tx.DeleteRecipe(ctx, recipe.ID); err != nil {
			return err
		}
		return tx.AppendLogEntry(ctx, &models.ModerationLogEntry{
			ModeratorID:       actor.ID,
			ModeratorUsername: actor.Username,
			TargetType:        models.TargetRecipe,
			TargetID:          recipe.ID,
			Action:            models.ActionRecipeDeleted,
			Reason:            "Deleted recipe: " + recipe.Title,
		})
	})
	if err != nil {
		return err
	}
	middleware.ModerationActions.WithLabelValues(models.ActionRecipeDeleted).Inc()
	return nil
}

// ResubmitRecipe returns the author's rejected recipe to the review queue.
// The same standing rule as submission applies: a suspended or banned author
// may not resubmit, and passive suspension expiry is reconciled first.
func (s *ModerationService) ResubmitRecipe(ctx context.Context, cmd ResubmitRecipeCommand) (*models.Recipe, error) {
	var updated *models.Recipe
	err := s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		author, err := tx.GetUser(ctx, cmd.ActorID)
		if err != nil {
			return err
		}
		if moderation.ReconcileSuspension(author, s.now()) {
			if err := tx.PutUser(ctx, author); err != nil {
				return err
			}
		}
		if author.Status != models.StatusActive {
			return models.NewPermissionDeniedError("Account is not in good standing")
		}
		recipe, err := tx.GetRecipe(ctx, cmd.RecipeID)
		if err != nil {
			return err
		}
		if err := moderation.Resubmit(author, recipe); err != nil {
			return err
		}
		if err := tx.PutRecipe(ctx, recipe); err != nil {
			return err
		}
		updated = recipe
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListModerationLog returns audit log entries matching the filter. Reading
// the log requires moderator rank.
func (s *ModerationService) ListModerationLog(ctx context.Context, actorID uint, filter repository.LogFilter) ([]models.ModerationLogEntry, error) {
	if err := s.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.QueryLog(ctx, filter)
}

// ListPendingRecipes returns the review queue, oldest first.
func (s *ModerationService) ListPendingRecipes(ctx context.Context, actorID uint, limit, offset int) ([]models.Recipe, error) {
	if err := s.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.ListPendingRecipes(ctx, limit, offset)
}

// Stats returns the moderation dashboard counters.
func (s *ModerationService) Stats(ctx context.Context, actorID uint) (*models.ModerationStats, error) {
	if err := s.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}
	return s.store.Stats(ctx, s.now())
}

// GetUser loads a user through the store, applying and persisting passive
// suspension expiry so repeated reads agree.
func (s *ModerationService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user *models.User
	err := s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if moderation.ReconcileSuspension(u, s.now()) {
			if err := tx.PutUser(ctx, u); err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ModerationService) requireModerator(ctx context.Context, actorID uint) error {
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !policy.HasPermission(actor.Role, models.RoleModerator) {
		return models.NewPermissionDeniedError("Moderator access required")
	}
	return nil
}

// runUserAction is the shared skeleton of every user-targeting operation:
// load actor and target, reconcile passive suspension expiry on the target
// under the same update, apply the transition, then persist the user and
// the audit entry together.
func (s *ModerationService) runUserAction(
	ctx context.Context,
	actorID, targetID uint,
	action string,
	fn func(actor, target *models.User) (string, error),
) (*models.User, error) {
	var updated *models.User
	err := s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		actor, err := tx.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		target, err := tx.GetUser(ctx, targetID)
		if err != nil {
			return err
		}

		moderation.ReconcileSuspension(target, s.now())

		reason, err := fn(actor, target)
		if err != nil {
			return err
		}
		if err := tx.PutUser(ctx, target); err != nil {
			return err
		}
		if err := tx.AppendLogEntry(ctx, &models.ModerationLogEntry{
			ModeratorID:       actor.ID,
			ModeratorUsername: actor.Username,
			TargetType:        models.TargetUser,
			TargetID:          target.ID,
			Action:            action,
			Reason:            reason,
		}); err != nil {
			return err
		}
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	middleware.ModerationActions.WithLabelValues(action).Inc()
	return updated, nil
}

func (s *ModerationService) runRecipeAction(
	ctx context.Context,
	actorID, recipeID uint,
	action string,
	fn func(actor *models.User, recipe *models.Recipe) (string, error),
) (*models.Recipe, error) {
	var updated *models.Recipe
	err := s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		actor, err := tx.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		recipe, err := tx.GetRecipe(ctx, recipeID)
		if err != nil {
			return err
		}

		reason, err := fn(actor, recipe)
		if err != nil {
			return err
		}
		if err := tx.PutRecipe(ctx, recipe); err != nil {
			return err
		}
		if err := tx.AppendLogEntry(ctx, &models.ModerationLogEntry{
			ModeratorID:       actor.ID,
			ModeratorUsername: actor.Username,
			TargetType:        models.TargetRecipe,
			TargetID:          recipe.ID,
			Action:            action,
			Reason:            reason,
		}); err != nil {
			return err
		}
		updated = recipe
		return nil
	})
	if err != nil {
		return nil, err
	}
	middleware.ModerationActions.WithLabelValues(action).Inc()
	return updated, nil
}
