package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"tastebook/internal/cache"
	"tastebook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestModerationStore_Users(t *testing.T) {
	db := setupTestDB(t)
	store := NewModerationStore(db)
	ctx := context.Background()

	user := &models.User{Username: "cook", Email: "cook@e.com", Password: "x", Role: models.RoleUser, Status: models.StatusActive}
	require.NoError(t, db.Create(user).Error)

	t.Run("GetUser", func(t *testing.T) {
		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "cook", got.Username)
	})

	t.Run("GetUser Not Found", func(t *testing.T) {
		_, err := store.GetUser(ctx, 999)
		require.Error(t, err)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("PutUser", func(t *testing.T) {
		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)

		got.Status = models.StatusSuspended
		got.SuspensionReason = "spam"
		require.NoError(t, store.PutUser(ctx, got))

		again, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSuspended, again.Status)
		assert.Equal(t, "spam", again.SuspensionReason)
	})
}

func TestModerationStore_Log(t *testing.T) {
	db := setupTestDB(t)
	store := NewModerationStore(db)
	ctx := context.Background()

	entries := []*models.ModerationLogEntry{
		{ModeratorID: 1, ModeratorUsername: "mod", TargetType: models.TargetUser, TargetID: 7, Action: models.ActionUserWarned, Reason: "first"},
		{ModeratorID: 1, ModeratorUsername: "mod", TargetType: models.TargetUser, TargetID: 7, Action: models.ActionUserSuspended, Reason: "second"},
		{ModeratorID: 2, ModeratorUsername: "admin", TargetType: models.TargetRecipe, TargetID: 3, Action: models.ActionRecipeApproved},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendLogEntry(ctx, e))
	}

	t.Run("Newest First", func(t *testing.T) {
		got, err := store.QueryLog(ctx, LogFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, models.ActionRecipeApproved, got[0].Action)
		assert.Equal(t, models.ActionUserWarned, got[2].Action)
	})

	t.Run("Filter By Target", func(t *testing.T) {
		got, err := store.QueryLog(ctx, LogFilter{TargetType: models.TargetUser, TargetID: 7})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("Filter By Moderator And Action", func(t *testing.T) {
		got, err := store.QueryLog(ctx, LogFilter{ModeratorID: 1, Action: models.ActionUserSuspended})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "second", got[0].Reason)
	})

	t.Run("Pagination", func(t *testing.T) {
		got, err := store.QueryLog(ctx, LogFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.ActionUserSuspended, got[0].Action)
	})
}

func TestModerationStore_PendingRecipes(t *testing.T) {
	db := setupTestDB(t)
	store := NewModerationStore(db)
	ctx := context.Background()

	author := &models.User{Username: "author", Email: "a@e.com", Password: "x"}
	require.NoError(t, db.Create(author).Error)

	older := &models.Recipe{Title: "Older", AuthorID: author.ID, ModerationStatus: models.RecipePending}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)

	newer := &models.Recipe{Title: "Newer", AuthorID: author.ID, ModerationStatus: models.RecipePending}
	require.NoError(t, db.Create(newer).Error)

	approved := &models.Recipe{Title: "Done", AuthorID: author.ID, ModerationStatus: models.RecipeApproved, IsPublished: true}
	require.NoError(t, db.Create(approved).Error)

	got, err := store.ListPendingRecipes(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Older", got[0].Title)
	assert.Equal(t, "Newer", got[1].Title)
	assert.Equal(t, "author", got[0].Author.Username)
}

func TestModerationStore_Stats(t *testing.T) {
	db := setupTestDB(t)
	store := NewModerationStore(db)
	ctx := context.Background()
	now := time.Now()

	locked := now.Add(10 * time.Minute)
	users := []*models.User{
		{Username: "u1", Email: "u1@e.com", Password: "x", Status: models.StatusActive, IsVerified: true},
		{Username: "u2", Email: "u2@e.com", Password: "x", Status: models.StatusSuspended},
		{Username: "u3", Email: "u3@e.com", Password: "x", Status: models.StatusBanned},
		{Username: "u4", Email: "u4@e.com", Password: "x", Status: models.StatusActive, LockedUntil: &locked},
	}
	for _, u := range users {
		require.NoError(t, db.Create(u).Error)
	}
	require.NoError(t, db.Create(&models.Recipe{Title: "Queue", AuthorID: 1, ModerationStatus: models.RecipePending}).Error)

	stats, err := store.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.ActiveUsers)
	assert.Equal(t, int64(1), stats.SuspendedUsers)
	assert.Equal(t, int64(1), stats.BannedUsers)
	assert.Equal(t, int64(1), stats.VerifiedUsers)
	assert.Equal(t, int64(1), stats.LockedAccounts)
	assert.Equal(t, int64(1), stats.PendingRecipes)
	assert.Equal(t, int64(4), stats.NewThisWeek)
}

func TestModerationStore_InTransaction(t *testing.T) {
	db := setupTestDB(t)
	store := NewModerationStore(db)
	ctx := context.Background()

	user := &models.User{Username: "txuser", Email: "tx@e.com", Password: "x", Status: models.StatusActive}
	require.NoError(t, db.Create(user).Error)

	t.Run("Rollback On Error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.InTransaction(ctx, func(tx ModerationStore) error {
			u, err := tx.GetUser(ctx, user.ID)
			if err != nil {
				return err
			}
			u.Status = models.StatusBanned
			if err := tx.PutUser(ctx, u); err != nil {
				return err
			}
			if err := tx.AppendLogEntry(ctx, &models.ModerationLogEntry{
				ModeratorID: 1, ModeratorUsername: "mod",
				TargetType: models.TargetUser, TargetID: u.ID,
				Action: models.ActionUserBanned,
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)

		log, err := store.QueryLog(ctx, LogFilter{})
		require.NoError(t, err)
		assert.Empty(t, log)
	})

	t.Run("Commit", func(t *testing.T) {
		err := store.InTransaction(ctx, func(tx ModerationStore) error {
			u, err := tx.GetUser(ctx, user.ID)
			if err != nil {
				return err
			}
			u.IsVerified = true
			return tx.PutUser(ctx, u)
		})
		require.NoError(t, err)

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.IsVerified)
	})
}

func TestRecipeWritesInvalidateBrowseCache(t *testing.T) {
	db := setupTestDB(t)
	store := NewModerationStore(db)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	recipe := &models.Recipe{Title: "Stew", AuthorID: 1, ModerationStatus: models.RecipePending}
	require.NoError(t, db.Create(recipe).Error)

	seedBrowseKeys := func() {
		require.NoError(t, mr.Set(cache.RecipeBrowseKey("20:0"), "[]"))
		require.NoError(t, mr.Set(cache.RecipeBrowseKey("20:20"), "[]"))
	}

	t.Run("PutRecipe Clears Browse", func(t *testing.T) {
		seedBrowseKeys()
		recipe.ModerationStatus = models.RecipeApproved
		recipe.IsPublished = true
		require.NoError(t, store.PutRecipe(ctx, recipe))

		assert.False(t, mr.Exists(cache.RecipeBrowseKey("20:0")))
		assert.False(t, mr.Exists(cache.RecipeBrowseKey("20:20")))
	})

	t.Run("DeleteRecipe Clears Browse", func(t *testing.T) {
		seedBrowseKeys()
		require.NoError(t, store.DeleteRecipe(ctx, recipe.ID))

		assert.False(t, mr.Exists(cache.RecipeBrowseKey("20:0")))
	})
}
