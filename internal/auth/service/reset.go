package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/google/uuid"
)

const DefaultResetTokenTTL = time.Hour

// ResetService mints and consumes password reset tokens. Only the argon2
// hash of a token is ever stored; the raw value goes out through the Mailer
// and is gone.
type ResetService struct {
	Store    store.Store
	Mailer   Mailer
	TokenTTL time.Duration
}

// Request mints a reset token for the account behind the email, if there is
// one. The outcome is identical either way so the endpoint cannot be used to
// probe which addresses have accounts.
func (s *ResetService) Request(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	raw, err := cryptox.GenerateToken(cryptox.ResetTokenBytes)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	hash, err := cryptox.HashPassword(raw)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	err = s.Store.ResetTokens().CreateResetToken(ctx, domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(s.tokenTTL()),
	})
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, raw); err != nil {
		return fmt.Errorf("failed to deliver token: %w", err)
	}
	slogx.FromContext(ctx).Info("reset token issued", slog.String("user_id", user.ID))
	return nil
}

// Consume exchanges a raw token for a password change. Token hashes carry
// per-computation salts, so there is nothing to look up by value; every
// live token is verified in turn instead. A match sets the new password and
// purges all of the user's tokens, making each token single-use.
func (s *ResetService) Consume(ctx context.Context, rawToken, newPassword string) error {
	now := time.Now()

	tokens, err := s.Store.ResetTokens().ListValidResetTokens(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	for _, t := range tokens {
		if cryptox.VerifyPassword(rawToken, t.TokenHash) != nil {
			continue
		}

		hash, err := cryptox.HashPassword(newPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().UpdatePasswordHash(ctx, t.UserID, hash); err != nil {
				return fmt.Errorf("failed to set password: %w", err)
			}
			if err := tx.ResetTokens().PurgeUserResetTokens(ctx, t.UserID); err != nil {
				return fmt.Errorf("failed to purge tokens: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		slogx.FromContext(ctx).Info("password reset", slog.String("user_id", t.UserID))
		return nil
	}

	return ErrTokenExpiredOrInvalid
}

func (s *ResetService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultResetTokenTTL
}
