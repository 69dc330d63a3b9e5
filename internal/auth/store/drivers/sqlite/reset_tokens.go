package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
)

type resetTokensRepo struct {
	db dbtx
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt)
	return mapConstraint(err)
}

func (r *resetTokensRepo) ListValidResetTokens(ctx context.Context, now time.Time) ([]domain.PasswordResetToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE expires_at > ?
		ORDER BY created_at DESC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PasswordResetToken
	for rows.Next() {
		var t domain.PasswordResetToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *resetTokensRepo) PurgeUserResetTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE user_id = ?`, userID)
	return err
}
