package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tastebook/internal/middleware"
	"tastebook/internal/models"
	"tastebook/internal/moderation"
	"tastebook/internal/repository"
	"tastebook/internal/validation"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 30 * time.Minute
)

// RegisterInput carries a signup request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthService handles registration and login, including the failed-attempt
// lockout counter and the account-status checks that gate authentication.
type AuthService struct {
	users repository.UserRepository
	store repository.ModerationStore
	now   func() time.Time
}

// NewAuthService returns an AuthService backed by the given repositories.
func NewAuthService(users repository.UserRepository, store repository.ModerationStore) *AuthService {
	return &AuthService{
		users: users,
		store: store,
		now:   time.Now,
	}
}

// Register creates a new active user account and records its creation in the
// moderation log under the system identity.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validation.ValidateUsername(input.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(input.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(input.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.users.GetByEmail(ctx, input.Email); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewValidationError("Email already registered")
	}
	if existing, err := s.users.GetByUsername(ctx, input.Username); err != nil {
		return nil, models.NewInternalError(err)
	} else if existing != nil {
		return nil, models.NewValidationError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hash),
		Role:     models.RoleUser,
		Status:   models.StatusActive,
	}
	// The account row and its creation log entry commit together, the same
	// atomicity every moderation action gets.
	err = s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		if err := tx.PutUser(ctx, user); err != nil {
			return err
		}
		return tx.AppendLogEntry(ctx, &models.ModerationLogEntry{
			ModeratorID:       models.SystemModeratorID,
			ModeratorUsername: models.SystemModeratorUsername,
			TargetType:        models.TargetUser,
			TargetID:          user.ID,
			Action:            models.ActionUserCreated,
			Reason:            "Account registered",
		})
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates by email and password. Banned and suspended accounts
// are refused even with correct credentials; repeated failures lock the
// account for a cooldown period and record a system log entry.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	found, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if found == nil {
		middleware.LoginFailures.WithLabelValues("unknown_email").Inc()
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	// The attempt counter and lockout must survive a refused login, so the
	// closure records the refusal in loginErr and commits instead of
	// returning an error that would roll the writes back.
	var user *models.User
	var loginErr error
	err = s.store.InTransaction(ctx, func(tx repository.ModerationStore) error {
		u, err := tx.GetUser(ctx, found.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if moderation.ReconcileSuspension(u, now) {
			if err := tx.PutUser(ctx, u); err != nil {
				return err
			}
		}

		switch u.Status {
		case models.StatusBanned:
			middleware.LoginFailures.WithLabelValues("banned").Inc()
			loginErr = models.NewPermissionDeniedError("Account has been banned")
			return nil
		case models.StatusSuspended:
			middleware.LoginFailures.WithLabelValues("suspended").Inc()
			loginErr = models.NewPermissionDeniedError("Account is suspended: " + u.SuspensionReason)
			return nil
		}

		if u.Locked(now) {
			middleware.LoginFailures.WithLabelValues("locked").Inc()
			loginErr = models.NewUnauthorizedError("Account temporarily locked, try again later")
			return nil
		}

		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			u.LoginAttempts++
			if u.LoginAttempts >= maxLoginAttempts {
				lockedUntil := now.Add(lockoutDuration)
				u.LockedUntil = &lockedUntil
				if err := tx.AppendLogEntry(ctx, &models.ModerationLogEntry{
					ModeratorID:       models.SystemModeratorID,
					ModeratorUsername: models.SystemModeratorUsername,
					TargetType:        models.TargetUser,
					TargetID:          u.ID,
					Action:            models.ActionAccountLocked,
					Reason:            "Too many failed login attempts",
				}); err != nil {
					return err
				}
			}
			if err := tx.PutUser(ctx, u); err != nil {
				return err
			}
			middleware.LoginFailures.WithLabelValues("bad_password").Inc()
			loginErr = models.NewUnauthorizedError("Invalid credentials")
			return nil
		}

		u.LoginAttempts = 0
		u.LockedUntil = nil
		lastLogin := now
		u.LastLoginAt = &lastLogin
		if err := tx.PutUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if loginErr != nil {
		return nil, loginErr
	}
	return user, nil
}
