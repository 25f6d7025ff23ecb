// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"tastebook/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password assigned to every seeded account.
const DefaultPassword = "SeedPass123!@"

var recipeCategories = []string{"breakfast", "lunch", "dinner", "dessert", "snack", "drink"}
var recipeDifficulties = []string{"easy", "medium", "hard"}

// Seeder populates the database with demo users, recipes, and a plausible
// moderation history.
type Seeder struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll wipes the seeded tables.
func (s *Seeder) ClearAll() error {
	for _, model := range []any{
		&models.ModerationLogEntry{},
		&models.Recipe{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clearing table: %w", err)
		}
	}
	return nil
}

// Seed creates the moderation hierarchy plus numUsers regular accounts and
// numRecipes recipes spread across the review lifecycle.
func (s *Seeder) Seed(numUsers, numRecipes int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	staff := []*models.User{
		{Username: "owner", Email: "owner@tastebook.dev", Role: models.RoleOwner},
		{Username: "admin", Email: "admin@tastebook.dev", Role: models.RoleAdmin},
		{Username: "moderator", Email: "moderator@tastebook.dev", Role: models.RoleModerator},
	}
	for _, u := range staff {
		u.Password = string(hash)
		u.Status = models.StatusActive
		u.IsVerified = true
		if err := s.db.Create(u).Error; err != nil {
			return fmt.Errorf("creating staff user %s: %w", u.Username, err)
		}
	}
	moderator := staff[2]

	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		u := &models.User{
			Username:  fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:     fmt.Sprintf("user%d@%s", i, gofakeit.DomainName()),
			Password:  string(hash),
			Bio:       gofakeit.Sentence(8),
			Role:      models.RoleUser,
			Status:    models.StatusActive,
			CreatedAt: time.Now().Add(-time.Duration(s.rand.Intn(90*24)) * time.Hour),
		}
		if s.rand.Intn(4) == 0 {
			u.IsVerified = true
		}
		if err := s.db.Create(u).Error; err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		users = append(users, u)
	}

	// A slice of the population has a moderation history.
	for i, u := range users {
		switch {
		case i%11 == 3:
			expiry := time.Now().Add(time.Duration(1+s.rand.Intn(14)) * 24 * time.Hour)
			u.Status = models.StatusSuspended
			u.SuspensionReason = "Repeated recipe spam"
			u.SuspensionExpiresAt = &expiry
			if err := s.moderate(moderator, u, models.ActionUserSuspended, u.SuspensionReason); err != nil {
				return err
			}
		case i%17 == 5:
			u.Status = models.StatusBanned
			u.SuspensionReason = "Harassment in comments"
			if err := s.moderate(moderator, u, models.ActionUserBanned, u.SuspensionReason); err != nil {
				return err
			}
		case i%7 == 2:
			u.WarningCount = 1 + s.rand.Intn(3)
			if err := s.moderate(moderator, u, models.ActionUserWarned, "Off-topic submissions"); err != nil {
				return err
			}
		}
	}

	for i := 0; i < numRecipes; i++ {
		author := users[s.rand.Intn(len(users))]
		r := &models.Recipe{
			AuthorID:    author.ID,
			Title:       gofakeit.Dinner(),
			Description: gofakeit.Paragraph(1, 3, 8, "\n"),
			Category:    recipeCategories[s.rand.Intn(len(recipeCategories))],
			Difficulty:  recipeDifficulties[s.rand.Intn(len(recipeDifficulties))],
			PrepMinutes: 5 + s.rand.Intn(55),
			CookMinutes: 10 + s.rand.Intn(110),
			Servings:    1 + s.rand.Intn(8),
			CreatedAt:   time.Now().Add(-time.Duration(s.rand.Intn(60*24)) * time.Hour),
		}

		switch s.rand.Intn(10) {
		case 0, 1:
			r.ModerationStatus = models.RecipePending
		case 2:
			r.ModerationStatus = models.RecipeRejected
			r.ModerationNotes = "Missing ingredient quantities"
		default:
			r.ModerationStatus = models.RecipeApproved
			r.IsPublished = true
		}
		if err := s.db.Create(r).Error; err != nil {
			return fmt.Errorf("creating recipe: %w", err)
		}

		switch r.ModerationStatus {
		case models.RecipeApproved:
			if err := s.logRecipe(moderator, r, models.ActionRecipeApproved, ""); err != nil {
				return err
			}
		case models.RecipeRejected:
			if err := s.logRecipe(moderator, r, models.ActionRecipeRejected, r.ModerationNotes); err != nil {
				return err
			}
		}
	}

	log.Printf("Seeded %d staff, %d users, %d recipes", len(staff), len(users), numRecipes)
	return nil
}

func (s *Seeder) moderate(actor, target *models.User, action, reason string) error {
	if err := s.db.Save(target).Error; err != nil {
		return fmt.Errorf("updating user %s: %w", target.Username, err)
	}
	return s.db.Create(&models.ModerationLogEntry{
		ModeratorID:       actor.ID,
		ModeratorUsername: actor.Username,
		TargetType:        models.TargetUser,
		TargetID:          target.ID,
		Action:            action,
		Reason:            reason,
	}).Error
}

func (s *Seeder) logRecipe(actor *models.User, r *models.Recipe, action, reason string) error {
	return s.db.Create(&models.ModerationLogEntry{
		ModeratorID:       actor.ID,
		ModeratorUsername: actor.Username,
		TargetType:        models.TargetRecipe,
		TargetID:          r.ID,
		Action:            action,
		Reason:            reason,
	}).Error
}
