package server

import (
	"tastebook/internal/models"
	"tastebook/internal/repository"
	"tastebook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SuspendUser handles POST /api/moderation/users/:id/suspend
func (s *Server) SuspendUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Reason       string `json:"reason"`
		DurationDays int    `json:"duration_days"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.moderationService.SuspendUser(c.UserContext(), service.SuspendCommand{
		ActorID:      actorID(c),
		TargetID:     id,
		Reason:       req.Reason,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// UnsuspendUser handles POST /api/moderation/users/:id/unsuspend
func (s *Server) UnsuspendUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.moderationService.UnsuspendUser(c.UserContext(), service.UnsuspendCommand{
		ActorID:  actorID(c),
		TargetID: id,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// BanUser handles POST /api/moderation/users/:id/ban
func (s *Server) BanUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.moderationService.BanUser(c.UserContext(), service.BanCommand{
		ActorID:  actorID(c),
		TargetID: id,
		Reason:   req.Reason,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// WarnUser handles POST /api/moderation/users/:id/warn
func (s *Server) WarnUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.moderationService.WarnUser(c.UserContext(), service.WarnCommand{
		ActorID:  actorID(c),
		TargetID: id,
		Reason:   req.Reason,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// VerifyUser handles POST /api/moderation/users/:id/verify
func (s *Server) VerifyUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.moderationService.VerifyUser(c.UserContext(), service.VerifyCommand{
		ActorID:  actorID(c),
		TargetID: id,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// ChangeUserRole handles PUT /api/admin/users/:id/role
func (s *Server) ChangeUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.moderationService.ChangeUserRole(c.UserContext(), service.ChangeRoleCommand{
		ActorID:  actorID(c),
		TargetID: id,
		NewRole:  models.Role(req.Role),
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// ApproveRecipe handles POST /api/moderation/recipes/:id/approve
func (s *Server) ApproveRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	recipe, err := s.moderationService.ApproveRecipe(c.UserContext(), service.ApproveRecipeCommand{
		ActorID:  actorID(c),
		RecipeID: id,
		Notes:    req.Notes,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(recipe)
}

// RejectRecipe handles POST /api/moderation/recipes/:id/reject
func (s *Server) RejectRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	recipe, err := s.moderationService.RejectRecipe(c.UserContext(), service.RejectRecipeCommand{
		ActorID:  actorID(c),
		RecipeID: id,
		Notes:    req.Notes,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(recipe)
}

// DeleteRecipe handles DELETE /api/moderation/recipes/:id
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.moderationService.DeleteRecipe(c.UserContext(), service.DeleteRecipeCommand{
		ActorID:  actorID(c),
		RecipeID: id,
	}); err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Recipe deleted"})
}

// GetPendingRecipes handles GET /api/moderation/queue
func (s *Server) GetPendingRecipes(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	recipes, err := s.moderationService.ListPendingRecipes(c.UserContext(), actorID(c), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(recipes)
}

// GetModerationLog handles GET /api/moderation/log
func (s *Server) GetModerationLog(c *fiber.Ctx) error {
	p := parsePagination(c, 50)

	filter := repository.LogFilter{
		TargetType: models.TargetType(c.Query("target_type")),
		Action:     c.Query("action"),
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	if targetID := c.QueryInt("target_id", 0); targetID > 0 {
		filter.TargetID = uint(targetID)
	}
	if moderatorID := c.QueryInt("moderator_id", 0); moderatorID > 0 {
		filter.ModeratorID = uint(moderatorID)
	}

	entries, err := s.moderationService.ListModerationLog(c.UserContext(), actorID(c), filter)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(entries)
}

// GetModerationStats handles GET /api/moderation/stats
func (s *Server) GetModerationStats(c *fiber.Ctx) error {
	stats, err := s.moderationService.Stats(c.UserContext(), actorID(c))
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(stats)
}

// SearchUsers handles GET /api/moderation/users. With a q parameter it
// searches username and email, otherwise it lists all users.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	query := c.Query("q")
	var (
		users []models.User
		err   error
	)
	if query != "" {
		users, err = s.userRepo.Search(c.UserContext(), query, p.Limit, p.Offset)
	} else {
		users, err = s.userRepo.List(c.UserContext(), p.Limit, p.Offset)
	}
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	return c.JSON(users)
}
