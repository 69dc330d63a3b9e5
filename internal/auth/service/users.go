package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/google/uuid"
)

// DefaultRoleSlug is assigned to self-registered accounts. AdminRoleSlug is
// the role the bootstrap flow grants the first account. Both are seeded by
// the schema migrations.
const (
	DefaultRoleSlug = "user"
	AdminRoleSlug   = "admin"
)

type UserService struct {
	Store store.Store
}

// CreateUserInput is the admin-facing creation payload.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Active   bool
	RoleIDs  []string
}

// Register creates a self-service account with the default role.
func (s *UserService) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	role, err := s.Store.Roles().GetRoleBySlug(ctx, DefaultRoleSlug)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to resolve default role: %w", err)
	}
	return s.Create(ctx, CreateUserInput{
		Email:    email,
		Name:     name,
		Password: password,
		Active:   true,
		RoleIDs:  []string{role.ID},
	})
}

// Create inserts a user with the given role assignments in one transaction.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(in.Email),
		Name:         in.Name,
		PasswordHash: hash,
		Active:       in.Active,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user, in.RoleIDs)
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created", slog.String("user_id", user.ID))
	return s.Store.Users().GetUserByID(ctx, user.ID)
}

// Update applies a partial update. A non-nil roleIDs replaces the whole
// assignment set atomically with the field changes.
func (s *UserService) Update(ctx context.Context, userID string, upd domain.UserUpdate, roleIDs []string) (domain.User, error) {
	if upd.Email != nil {
		normalized := NormalizeEmail(*upd.Email)
		upd.Email = &normalized
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdateUser(ctx, userID, upd, roleIDs)
	})
	if err != nil {
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateWithPassword folds an optional password change into the same
// transactional update as the other fields, so a failed field or role write
// cannot leave a half-applied password behind.
func (s *UserService) UpdateWithPassword(ctx context.Context, userID string, upd domain.UserUpdate, password *string, roleIDs []string) (domain.User, error) {
	if password != nil {
		hash, err := cryptox.HashPassword(*password)
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}
	return s.Update(ctx, userID, upd, roleIDs)
}

// SetPassword replaces the user's password hash.
func (s *UserService) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}

// Unlock clears a triggered account lock and the attempt counter.
func (s *UserService) Unlock(ctx context.Context, userID string) error {
	return s.Store.Users().ResetFailedAttempts(ctx, userID)
}

// GetByID fetches a user by id.
func (s *UserService) GetByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// RoleIDs returns the ids of the user's assigned roles.
func (s *UserService) RoleIDs(ctx context.Context, userID string) ([]string, error) {
	return s.Store.Users().RoleIDs(ctx, userID)
}

// RoleSlugs returns the slugs of the user's assigned roles.
func (s *UserService) RoleSlugs(ctx context.Context, userID string) ([]string, error) {
	return s.Store.Users().RoleSlugs(ctx, userID)
}

// List returns a page of users matching the optional search term.
func (s *UserService) List(ctx context.Context, search string, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Store.Users().ListUsers(ctx, search, limit, offset)
}

// Delete removes a user; role links and reset tokens go with them.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", userID))
	return nil
}

// Count returns the total number of users.
func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.Store.Users().CountUsers(ctx)
}
