package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
)

// BootstrapService creates the first admin account on a fresh install. The
// baseline roles come from the schema migrations; without this flow nobody
// would hold the admin role and the admin surface would be unreachable.
type BootstrapService struct {
	Users *UserService
	Token string // Pre-configured bootstrap token
}

// IsBootstrapped reports whether any account exists yet.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	count, err := s.Users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

// Bootstrap creates the first admin user. It refuses once any account exists
// and when the token does not match; an unset token disables the flow.
func (s *BootstrapService) Bootstrap(ctx context.Context, token, email, name, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return domain.User{}, ErrBootstrapAlready
	}

	if s.Token == "" || token != s.Token {
		l.Warn("unauthorized bootstrap attempt")
		return domain.User{}, ErrBootstrapUnauthorized
	}

	adminRole, err := s.Users.Store.Roles().GetRoleBySlug(ctx, AdminRoleSlug)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to resolve admin role: %w", err)
	}

	user, err := s.Users.Create(ctx, CreateUserInput{
		Email:    email,
		Name:     name,
		Password: password,
		Active:   true,
		RoleIDs:  []string{adminRole.ID},
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to create admin user: %w", err)
	}

	l.Info("successfully bootstrapped system", slog.String("admin_user_id", user.ID))
	return user, nil
}
