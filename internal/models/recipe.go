package models

import "time"

// ModerationStatus is a recipe's position in the review lifecycle.
type ModerationStatus string

// Recipe moderation statuses. New submissions start pending.
const (
	RecipePending  ModerationStatus = "pending"
	RecipeApproved ModerationStatus = "approved"
	RecipeRejected ModerationStatus = "rejected"
)

// Recipe represents a user-submitted recipe.
// IsPublished is true if and only if ModerationStatus is approved.
type Recipe struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	AuthorID         uint             `gorm:"not null;index" json:"author_id"`
	Title            string           `gorm:"not null" json:"title"`
	Description      string           `json:"description"`
	Category         string           `json:"category"`
	Difficulty       string           `json:"difficulty"`
	PrepMinutes      int              `json:"prep_minutes"`
	CookMinutes      int              `json:"cook_minutes"`
	Servings         int              `json:"servings"`
	ModerationStatus ModerationStatus `gorm:"type:varchar(16);default:pending;index" json:"moderation_status"`
	IsPublished      bool             `gorm:"default:false;index" json:"is_published"`
	ModerationNotes  string           `json:"moderation_notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Author           *User            `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
