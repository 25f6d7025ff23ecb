package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tastebook/internal/config"
	"tastebook/internal/models"
	"tastebook/internal/repository"
	"tastebook/internal/service"
	"tastebook/internal/sessions"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.ModerationLogEntry{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

// newTestServer wires a Server over in-memory sqlite without Redis and
// without the Prometheus middleware, which must only register once per process.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: "test_secret", SessionTTLHrs: 1, Env: "test"}
	sessionStore := sessions.NewStore(nil, time.Hour)
	store := repository.NewModerationStore(db)
	userRepo := repository.NewUserRepository(db)

	s := &Server{
		config:            cfg,
		db:                db,
		userRepo:          userRepo,
		recipeRepo:        repository.NewRecipeRepository(db),
		store:             store,
		sessions:          sessionStore,
		authService:       service.NewAuthService(userRepo, store),
		moderationService: service.NewModerationService(store, sessionStore),
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role, status models.Status) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("SecurePass12!@"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username: username,
		Email:    username + "@e.com",
		Password: string(hash),
		Role:     role,
		Status:   status,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func tokenFor(t *testing.T, s *Server, u *models.User) string {
	t.Helper()
	token, err := s.generateToken(context.Background(), u.ID, u.Username)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestAuthRequired(t *testing.T) {
	_, app, _ := newTestServer(t)

	t.Run("Missing Token", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/users/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Garbage Token", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/users/me", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestSignupAndLogin(t *testing.T) {
	_, app, _ := newTestServer(t)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "newcook",
		"email":    "newcook@e.com",
		"password": "SecurePass12!@",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var signup struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, resp, &signup)
	assert.NotEmpty(t, signup.Token)
	assert.Equal(t, models.RoleUser, signup.User.Role)

	t.Run("Login", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "newcook@e.com",
			"password": "SecurePass12!@",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "newcook@e.com",
			"password": "WrongPass12!@",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Profile With Token", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/users/me", signup.Token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var me models.User
		decodeBody(t, resp, &me)
		assert.Equal(t, "newcook", me.Username)
	})

	t.Run("Update Profile", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPut, "/api/users/me", signup.Token,
			map[string]string{"username": "saucier", "bio": "Weeknight cook"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var updated models.User
		decodeBody(t, resp, &updated)
		assert.Equal(t, "saucier", updated.Username)
		assert.Equal(t, "Weeknight cook", updated.Bio)
	})

	t.Run("Update Profile Bad Username", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPut, "/api/users/me", signup.Token,
			map[string]string{"username": "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestModerationEndpoints(t *testing.T) {
	s, app, db := newTestServer(t)

	mod := seedUser(t, db, "mod", models.RoleModerator, models.StatusActive)
	user := seedUser(t, db, "user", models.RoleUser, models.StatusActive)
	modToken := tokenFor(t, s, mod)
	userToken := tokenFor(t, s, user)

	t.Run("Plain User Forbidden", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/moderation/queue", userToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Suspend", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/suspend", user.ID), modToken,
			map[string]any{"reason": "Spamming", "duration_days": 7})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.User
		decodeBody(t, resp, &got)
		assert.Equal(t, models.StatusSuspended, got.Status)
	})

	t.Run("Unsuspend", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/unsuspend", user.ID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.User
		decodeBody(t, resp, &got)
		assert.Equal(t, models.StatusActive, got.Status)
	})

	t.Run("Warn", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/warn", user.ID), modToken,
			map[string]string{"reason": "Rude comments"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.User
		decodeBody(t, resp, &got)
		assert.Equal(t, 1, got.WarningCount)
	})

	t.Run("Verify", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/verify", user.ID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Moderator Cannot Ban Moderator", func(t *testing.T) {
		other := seedUser(t, db, "othermod", models.RoleModerator, models.StatusActive)
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/ban", other.ID), modToken,
			map[string]string{"reason": "Nope"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Ban", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/users/%d/ban", user.ID), modToken,
			map[string]string{"reason": "Abuse"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.User
		decodeBody(t, resp, &got)
		assert.Equal(t, models.StatusBanned, got.Status)
	})

	t.Run("Log Lists Actions Newest First", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/moderation/log", modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []models.ModerationLogEntry
		decodeBody(t, resp, &entries)
		require.NotEmpty(t, entries)
		assert.Equal(t, models.ActionUserBanned, entries[0].Action)
	})

	t.Run("Stats", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/moderation/stats", modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stats models.ModerationStats
		decodeBody(t, resp, &stats)
		assert.Equal(t, int64(1), stats.BannedUsers)
	})

	t.Run("User Search", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/moderation/users?q=mod", modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var users []models.User
		decodeBody(t, resp, &users)
		require.NotEmpty(t, users)
	})
}

func TestRecipeReviewEndpoints(t *testing.T) {
	s, app, db := newTestServer(t)

	mod := seedUser(t, db, "mod", models.RoleModerator, models.StatusActive)
	author := seedUser(t, db, "author", models.RoleUser, models.StatusActive)
	modToken := tokenFor(t, s, mod)
	authorToken := tokenFor(t, s, author)

	// Author submits a recipe.
	resp := doRequest(t, app, http.MethodPost, "/api/recipes", authorToken, map[string]any{
		"title":       "Shakshuka",
		"description": "Eggs poached in tomato sauce",
		"category":    "breakfast",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var recipe models.Recipe
	decodeBody(t, resp, &recipe)
	assert.Equal(t, models.RecipePending, recipe.ModerationStatus)
	assert.False(t, recipe.IsPublished)

	t.Run("Hidden From Public Browse", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/recipes", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var recipes []models.Recipe
		decodeBody(t, resp, &recipes)
		assert.Empty(t, recipes)
	})

	t.Run("Hidden From Strangers", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/recipes/%d", recipe.ID), "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Visible To Author", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/recipes/%d", recipe.ID), authorToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("In Review Queue", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/moderation/queue", modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var queue []models.Recipe
		decodeBody(t, resp, &queue)
		require.Len(t, queue, 1)
		assert.Equal(t, "Shakshuka", queue[0].Title)
	})

	t.Run("Reject And Resubmit", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/recipes/%d/reject", recipe.ID), modToken,
			map[string]string{"notes": "Needs measurements"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// Only the author may resubmit.
		resp = doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/recipes/%d/resubmit", recipe.ID), modToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/recipes/%d/resubmit", recipe.ID), authorToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.Recipe
		decodeBody(t, resp, &got)
		assert.Equal(t, models.RecipePending, got.ModerationStatus)
		assert.Empty(t, got.ModerationNotes)
	})

	t.Run("Approve Publishes", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/recipes/%d/approve", recipe.ID), modToken,
			map[string]string{"notes": "Looks great"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/recipes/%d", recipe.ID), "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Double Approve Rejected", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/moderation/recipes/%d/approve", recipe.ID), modToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Delete", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodDelete,
			fmt.Sprintf("/api/moderation/recipes/%d", recipe.ID), modToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/recipes/%d", recipe.ID), modToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSuspendedAuthorCannotSubmit(t *testing.T) {
	s, app, db := newTestServer(t)

	author := seedUser(t, db, "benched", models.RoleUser, models.StatusSuspended)
	token := tokenFor(t, s, author)

	resp := doRequest(t, app, http.MethodPost, "/api/recipes", token, map[string]string{
		"title": "Contraband Cookies",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	t.Run("Resubmit Also Refused", func(t *testing.T) {
		recipe := &models.Recipe{
			Title:            "Benched Bread",
			AuthorID:         author.ID,
			ModerationStatus: models.RecipeRejected,
		}
		require.NoError(t, db.Create(recipe).Error)

		resp := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/recipes/%d/resubmit", recipe.ID), token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var got models.Recipe
		require.NoError(t, db.First(&got, recipe.ID).Error)
		assert.Equal(t, models.RecipeRejected, got.ModerationStatus)
	})
}

func TestRoleChangeEndpoint(t *testing.T) {
	s, app, db := newTestServer(t)

	admin := seedUser(t, db, "admin", models.RoleAdmin, models.StatusActive)
	mod := seedUser(t, db, "mod", models.RoleModerator, models.StatusActive)
	user := seedUser(t, db, "user", models.RoleUser, models.StatusActive)
	adminToken := tokenFor(t, s, admin)
	modToken := tokenFor(t, s, mod)

	t.Run("Moderator Forbidden", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPut,
			fmt.Sprintf("/api/admin/users/%d/role", user.ID), modToken,
			map[string]string{"role": "moderator"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Admin Promotes", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPut,
			fmt.Sprintf("/api/admin/users/%d/role", user.ID), adminToken,
			map[string]string{"role": "moderator"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.User
		decodeBody(t, resp, &got)
		assert.Equal(t, models.RoleModerator, got.Role)
	})

	t.Run("Admin Cannot Grant Owner", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPut,
			fmt.Sprintf("/api/admin/users/%d/role", user.ID), adminToken,
			map[string]string{"role": "owner"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
