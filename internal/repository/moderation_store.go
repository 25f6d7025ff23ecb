package repository

import (
	"context"
	"errors"
	"time"

	"tastebook/internal/cache"
	"tastebook/internal/models"

	"gorm.io/gorm"
)

// LogFilter narrows audit log queries. Zero values mean "no constraint".
type LogFilter struct {
	TargetType  models.TargetType
	TargetID    uint
	ModeratorID uint
	Action      string
	Limit       int
	Offset      int
}

// ModerationStore is the persistence collaborator for the moderation service.
// All reads and writes inside one InTransaction call commit or roll back
// together, which is what keeps an entity update and its audit log entry
// atomic. The log is append-only: there is no update or delete.
type ModerationStore interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	PutUser(ctx context.Context, user *models.User) error
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	PutRecipe(ctx context.Context, recipe *models.Recipe) error
	DeleteRecipe(ctx context.Context, id uint) error
	AppendLogEntry(ctx context.Context, entry *models.ModerationLogEntry) error
	QueryLog(ctx context.Context, filter LogFilter) ([]models.ModerationLogEntry, error)
	ListPendingRecipes(ctx context.Context, limit, offset int) ([]models.Recipe, error)
	Stats(ctx context.Context, now time.Time) (*models.ModerationStats, error)

	// InTransaction runs fn against a store bound to a single transaction.
	InTransaction(ctx context.Context, fn func(ModerationStore) error) error
}

type moderationStore struct {
	db *gorm.DB
}

// NewModerationStore returns a gorm-backed ModerationStore.
func NewModerationStore(db *gorm.DB) ModerationStore {
	return &moderationStore{db: db}
}

func (s *moderationStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (s *moderationStore) PutUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (s *moderationStore) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Recipe", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &recipe, nil
}

func (s *moderationStore) PutRecipe(ctx context.Context, recipe *models.Recipe) error {
	if err := s.db.WithContext(ctx).Save(recipe).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRecipe(ctx, recipe.ID)
	cache.InvalidateRecipeBrowse(ctx)
	return nil
}

func (s *moderationStore) DeleteRecipe(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Recipe{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateRecipe(ctx, id)
	cache.InvalidateRecipeBrowse(ctx)
	return nil
}

func (s *moderationStore) AppendLogEntry(ctx context.Context, entry *models.ModerationLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *moderationStore) QueryLog(ctx context.Context, filter LogFilter) ([]models.ModerationLogEntry, error) {
	q := s.db.WithContext(ctx).Model(&models.ModerationLogEntry{})

	if filter.TargetType != "" {
		q = q.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		q = q.Where("target_id = ?", filter.TargetID)
	}
	if filter.ModeratorID != 0 {
		q = q.Where("moderator_id = ?", filter.ModeratorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var entries []models.ModerationLogEntry
	if err := q.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

func (s *moderationStore) ListPendingRecipes(ctx context.Context, limit, offset int) ([]models.Recipe, error) {
	var recipes []models.Recipe
	q := s.db.WithContext(ctx).
		Preload("Author").
		Where("moderation_status = ?", models.RecipePending).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

func (s *moderationStore) Stats(ctx context.Context, now time.Time) (*models.ModerationStats, error) {
	stats := &models.ModerationStats{}
	db := s.db.WithContext(ctx)

	counts := []struct {
		dest *int64
		cond func(*gorm.DB) *gorm.DB
	}{
		{&stats.TotalUsers, func(q *gorm.DB) *gorm.DB { return q }},
		{&stats.ActiveUsers, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", models.StatusActive) }},
		{&stats.SuspendedUsers, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", models.StatusSuspended) }},
		{&stats.BannedUsers, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", models.StatusBanned) }},
		{&stats.VerifiedUsers, func(q *gorm.DB) *gorm.DB { return q.Where("is_verified = ?", true) }},
		{&stats.NewThisWeek, func(q *gorm.DB) *gorm.DB { return q.Where("created_at >= ?", now.AddDate(0, 0, -7)) }},
		{&stats.NewThisMonth, func(q *gorm.DB) *gorm.DB { return q.Where("created_at >= ?", now.AddDate(0, 0, -30)) }},
		{&stats.LockedAccounts, func(q *gorm.DB) *gorm.DB { return q.Where("locked_until > ?", now) }},
	}
	for _, c := range counts {
		if err := c.cond(db.Model(&models.User{})).Count(c.dest).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	if err := db.Model(&models.Recipe{}).
		Where("moderation_status = ?", models.RecipePending).
		Count(&stats.PendingRecipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return stats, nil
}

func (s *moderationStore) InTransaction(ctx context.Context, fn func(ModerationStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&moderationStore{db: tx})
	})
}
