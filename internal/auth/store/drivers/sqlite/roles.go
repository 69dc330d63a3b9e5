package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `id, slug, name, description, created_at, updated_at`

func scanRole(row interface{ Scan(dest ...any) error }) (domain.Role, error) {
	var (
		role        domain.Role
		description sql.NullString
	)
	err := row.Scan(&role.ID, &role.Slug, &role.Name, &description,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return domain.Role{}, err
	}
	if description.Valid {
		role.Description = description.String
	}
	return role, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) GetRoleBySlug(ctx context.Context, slug string) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE slug = ?`, slug)
	role, err := scanRole(row)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	var description sql.NullString
	if role.Description != "" {
		description = sql.NullString{String: role.Description, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, slug, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		role.ID, role.Slug, role.Name, description)
	return mapConstraint(err)
}

func (r *rolesRepo) UpdateRole(ctx context.Context, roleID string, upd domain.RoleUpdate) error {
	query := `UPDATE roles SET updated_at = CURRENT_TIMESTAMP`
	args := []any{}
	if upd.Slug != nil {
		query += `, slug = ?`
		args = append(args, *upd.Slug)
	}
	if upd.Name != nil {
		query += `, name = ?`
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		query += `, description = ?`
		args = append(args, *upd.Description)
	}
	query += ` WHERE id = ?`
	args = append(args, roleID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *rolesRepo) DeleteRole(ctx context.Context, roleID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, roleID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *rolesRepo) CountRoles(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count)
	return count, err
}
