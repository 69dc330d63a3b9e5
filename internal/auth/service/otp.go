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
	"github.com/aussiebroadwan/gatekeep/pkg/totp"
)

// OTPService manages TOTP enrollment for the logged-in user. Enablement is
// two-step: Enroll hands out a secret, Enable persists it only once the user
// proves they can produce a code from it.
type OTPService struct {
	Store  store.Store
	Auth   *AuthService
	Issuer string // shown by authenticator apps, e.g. "GateKeep"
}

// Enrollment is what the client needs to set up an authenticator app.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
}

// Enroll returns the user's enrollment material: the stored secret when one
// exists, otherwise a fresh one. Nothing is persisted here.
func (s *OTPService) Enroll(ctx context.Context, sess *domain.Session) (Enrollment, error) {
	if err := s.Auth.RequireActive(sess, time.Now()); err != nil {
		return Enrollment{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		return Enrollment{}, fmt.Errorf("failed to look up user: %w", err)
	}

	secret := ""
	if user.TOTPSecret != nil {
		secret = *user.TOTPSecret
	}
	if secret == "" {
		secret, err = totp.GenerateSecret(totp.DefaultSecretLength)
		if err != nil {
			return Enrollment{}, fmt.Errorf("failed to generate secret: %w", err)
		}
	}

	return Enrollment{
		Secret:          secret,
		ProvisioningURI: totp.ProvisioningURI(secret, user.Email, s.Issuer),
	}, nil
}

// Enable turns 2FA on after verifying a code against the presented secret.
// The secret is only persisted once the code checks out, so a user can never
// lock themselves out with an authenticator that was set up wrong.
func (s *OTPService) Enable(ctx context.Context, sess *domain.Session, secret, code string) error {
	if err := s.Auth.RequireActive(sess, time.Now()); err != nil {
		return err
	}
	if secret == "" || !totp.Verify(secret, code, s.Auth.otpWindow()) {
		return ErrSecondFactorInvalid
	}

	if err := s.Store.Users().SetTwoFactor(ctx, sess.UserID, true, &secret); err != nil {
		return fmt.Errorf("failed to enable second factor: %w", err)
	}

	sess.TwoFactorRequired = true
	sess.TwoFactorVerified = true
	slogx.FromContext(ctx).Info("second factor enabled", slog.String("user_id", sess.UserID))
	return nil
}

// Disable turns 2FA off after re-verifying the user's password, clearing
// both the flag and the stored secret.
func (s *OTPService) Disable(ctx context.Context, sess *domain.Session, password string) error {
	if err := s.Auth.RequireActive(sess, time.Now()); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if err := s.Store.Users().SetTwoFactor(ctx, user.ID, false, nil); err != nil {
		return fmt.Errorf("failed to disable second factor: %w", err)
	}

	sess.TwoFactorRequired = false
	sess.TwoFactorVerified = false
	slogx.FromContext(ctx).Info("second factor disabled", slog.String("user_id", user.ID))
	return nil
}
