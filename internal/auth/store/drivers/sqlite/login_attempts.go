package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
)

type loginAttemptsRepo struct {
	db dbtx
}

func (r *loginAttemptsRepo) LogAttempt(ctx context.Context, a domain.LoginAttempt) error {
	// created_at is bound from Go, not CURRENT_TIMESTAMP, so it compares
	// cleanly against Go-bound cutoffs in CountRecentFailures.
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_attempts (id, user_id, email, ip, user_agent, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, mapOptionalString(a.UserID), a.Email, a.IP, a.UserAgent, a.Success, created)
	return err
}

func (r *loginAttemptsRepo) ListRecentAttempts(ctx context.Context, limit int) ([]domain.LoginAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, email, ip, user_agent, success, created_at
		FROM login_attempts
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LoginAttempt
	for rows.Next() {
		var (
			a      domain.LoginAttempt
			userID sql.NullString
		)
		if err := rows.Scan(&a.ID, &userID, &a.Email, &a.IP, &a.UserAgent, &a.Success, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID = mapNullStringPtr(userID)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *loginAttemptsRepo) CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE user_id = ? AND success = 0 AND created_at >= ?`,
		userID, since).Scan(&count)
	return count, err
}

func (r *loginAttemptsRepo) CountAttempts(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM login_attempts`).Scan(&count)
	return count, err
}
