package server

import (
	"fmt"
	"strconv"
	"strings"

	"tastebook/internal/cache"
	"tastebook/internal/models"
	"tastebook/internal/policy"
	"tastebook/internal/repository"
	"tastebook/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// CreateRecipe handles POST /api/recipes. New recipes enter the review queue
// unpublished; only accounts in good standing may submit.
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Difficulty  string `json:"difficulty"`
		PrepMinutes int    `json:"prep_minutes"`
		CookMinutes int    `json:"cook_minutes"`
		Servings    int    `json:"servings"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title is required"))
	}

	author, err := s.moderationService.GetUser(c.UserContext(), actorID(c))
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}
	if author.Status != models.StatusActive {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionDeniedError("Account is not in good standing"))
	}

	recipe := &models.Recipe{
		AuthorID:         author.ID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		PrepMinutes:      req.PrepMinutes,
		CookMinutes:      req.CookMinutes,
		Servings:         req.Servings,
		ModerationStatus: models.RecipePending,
		IsPublished:      false,
	}
	if err := s.recipeRepo.Create(c.UserContext(), recipe); err != nil {
		return models.RespondWithServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(recipe)
}

// GetRecipes handles GET /api/recipes, the public browse of published recipes.
func (s *Server) GetRecipes(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	var recipes []models.Recipe
	key := cache.RecipeBrowseKey(fmt.Sprintf("%d:%d", p.Limit, p.Offset))
	err := cache.Aside(c.UserContext(), key, &recipes, cache.RecipeBrowseTTL, func() error {
		var err error
		recipes, err = s.recipeRepo.List(c.UserContext(), repository.RecipeFilter{
			PublishedOnly: true,
			Limit:         p.Limit,
			Offset:        p.Offset,
		})
		return err
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	return c.JSON(recipes)
}

// GetRecipe handles GET /api/recipes/:id. Unpublished recipes are only
// visible to their author and to moderators.
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := s.recipeRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	if !recipe.IsPublished {
		viewerID, authed := s.optionalUserID(c)
		if !authed || (viewerID != recipe.AuthorID && !s.isModerator(c, viewerID)) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Recipe", id))
		}
	}

	return c.JSON(recipe)
}

// GetMyRecipes handles GET /api/recipes/me, including unpublished submissions.
func (s *Server) GetMyRecipes(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	recipes, err := s.recipeRepo.List(c.UserContext(), repository.RecipeFilter{
		AuthorID: actorID(c),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	return c.JSON(recipes)
}

// ResubmitRecipe handles POST /api/recipes/:id/resubmit. The author sends a
// rejected recipe back into the review queue.
func (s *Server) ResubmitRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := s.moderationService.ResubmitRecipe(c.UserContext(), service.ResubmitRecipeCommand{
		ActorID:  actorID(c),
		RecipeID: id,
	})
	if err != nil {
		return models.RespondWithServiceError(c, err)
	}

	return c.JSON(recipe)
}

// optionalUserID attempts to extract userID from the Authorization header but
// does not enforce it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(userID), true
}

func (s *Server) isModerator(c *fiber.Ctx, userID uint) bool {
	user, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil || user == nil {
		return false
	}
	return policy.HasPermission(user.Role, models.RoleModerator)
}
