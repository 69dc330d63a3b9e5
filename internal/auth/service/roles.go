package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/google/uuid"
)

type RolesService struct {
	Store store.Store
}

// NormalizeSlug lowercases a role's machine name. Role gates compare slugs
// literally, so a mixed-case slug would never match.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// GetByID fetches a role by its ID.
func (s *RolesService) GetByID(ctx context.Context, roleID string) (domain.Role, error) {
	return s.Store.Roles().GetRoleByID(ctx, roleID)
}

// GetBySlug fetches a role by its machine name.
func (s *RolesService) GetBySlug(ctx context.Context, slug string) (domain.Role, error) {
	return s.Store.Roles().GetRoleBySlug(ctx, NormalizeSlug(slug))
}

// ListAll returns all roles in the system.
func (s *RolesService) ListAll(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().ListRoles(ctx)
}

// Create inserts a new role.
func (s *RolesService) Create(ctx context.Context, slug, name, description string) (domain.Role, error) {
	role := domain.Role{
		ID:          uuid.NewString(),
		Slug:        NormalizeSlug(slug),
		Name:        name,
		Description: description,
	}
	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		return domain.Role{}, err
	}
	slogx.FromContext(ctx).Info("role created", slog.String("role_id", role.ID), slog.String("slug", role.Slug))
	return s.Store.Roles().GetRoleByID(ctx, role.ID)
}

// Update applies a partial update to a role.
func (s *RolesService) Update(ctx context.Context, roleID string, upd domain.RoleUpdate) (domain.Role, error) {
	if upd.Slug != nil {
		normalized := NormalizeSlug(*upd.Slug)
		upd.Slug = &normalized
	}
	if err := s.Store.Roles().UpdateRole(ctx, roleID, upd); err != nil {
		return domain.Role{}, err
	}
	return s.Store.Roles().GetRoleByID(ctx, roleID)
}

// Delete removes a role and its user assignments.
func (s *RolesService) Delete(ctx context.Context, roleID string) error {
	if err := s.Store.Roles().DeleteRole(ctx, roleID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("role deleted", slog.String("role_id", roleID))
	return nil
}

// Count returns the total number of roles.
func (s *RolesService) Count(ctx context.Context) (int, error) {
	return s.Store.Roles().CountRoles(ctx)
}
