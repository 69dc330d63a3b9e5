package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, name, password_hash, active, failed_attempts,
	locked_until, two_factor_enabled, totp_secret, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (domain.User, error) {
	var (
		u           domain.User
		lockedUntil sql.NullTime
		totpSecret  sql.NullString
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Active, &u.FailedAttempts,
		&lockedUntil, &u.TwoFactorEnabled, &totpSecret, &lastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	u.LastLoginAt = mapNullTimePtr(lastLoginAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User, roleIDs []string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, active, failed_attempts,
			locked_until, two_factor_enabled, totp_secret, last_login_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?, NULL, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Active,
		u.TwoFactorEnabled, mapOptionalString(u.TOTPSecret),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return r.replaceRoles(ctx, u.ID, roleIDs)
}

func (r *usersRepo) UpdateUser(ctx context.Context, userID string, upd domain.UserUpdate, roleIDs []string) error {
	query := `UPDATE users SET updated_at = CURRENT_TIMESTAMP`
	args := []any{}
	if upd.Email != nil {
		query += `, email = ?`
		args = append(args, *upd.Email)
	}
	if upd.Name != nil {
		query += `, name = ?`
		args = append(args, *upd.Name)
	}
	if upd.PasswordHash != nil {
		query += `, password_hash = ?`
		args = append(args, *upd.PasswordHash)
	}
	if upd.Active != nil {
		query += `, active = ?`
		args = append(args, *upd.Active)
	}
	query += ` WHERE id = ?`
	args = append(args, userID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	if roleIDs == nil {
		return nil
	}
	return r.replaceRoles(ctx, userID, roleIDs)
}

func (r *usersRepo) replaceRoles(ctx context.Context, userID string, roleIDs []string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`,
			userID, roleID); err != nil {
			return mapConstraint(err)
		}
	}
	return nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID)
	return err
}

func (r *usersRepo) SetTwoFactor(ctx context.Context, userID string, enabled bool, secret *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = ?, totp_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		enabled, mapOptionalString(secret), userID)
	return err
}

// IncrementFailedAttempts bumps the counter and arms the lock in one
// statement so two racing failures cannot under-count.
func (r *usersRepo) IncrementFailedAttempts(ctx context.Context, userID string, max int, lockedUntil time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			failed_attempts = failed_attempts + 1,
			locked_until = CASE WHEN failed_attempts + 1 >= ? THEN ? ELSE locked_until END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		max, lockedUntil, userID)
	return err
}

func (r *usersRepo) ResetFailedAttempts(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		userID)
	return err
}

func (r *usersRepo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at, userID)
	return err
}

func (r *usersRepo) RoleIDs(ctx context.Context, userID string) ([]string, error) {
	return r.roleColumn(ctx, userID, `
		SELECT r.id FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ? ORDER BY r.slug`)
}

func (r *usersRepo) RoleSlugs(ctx context.Context, userID string) ([]string, error) {
	return r.roleColumn(ctx, userID, `
		SELECT r.slug FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ? ORDER BY r.slug`)
}

func (r *usersRepo) roleColumn(ctx context.Context, userID, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *usersRepo) ListUsers(ctx context.Context, search string, limit, offset int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if search != "" {
		query += ` WHERE email LIKE ? OR name LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *usersRepo) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
