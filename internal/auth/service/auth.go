package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
	"github.com/aussiebroadwan/gatekeep/pkg/totp"
	"github.com/google/uuid"
)

const (
	DefaultMaxFailedAttempts  = 5
	DefaultLockDuration       = 15 * time.Minute
	DefaultSessionLockTimeout = 900 * time.Second
	DefaultOTPWindow          = 1

	maxUserAgentLen = 255
)

// ClientInfo carries the request metadata recorded with every login attempt.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// AuthService drives the login state machine. Sessions are explicit values
// owned by the caller; every transition mutates the passed-in session and
// nothing is kept in the service itself.
type AuthService struct {
	Store store.Store

	MaxFailedAttempts  int           // wrong passwords before the account locks
	LockDuration       time.Duration // how long a triggered lock lasts
	SessionLockTimeout time.Duration // inactivity before a session soft-locks
	OTPWindow          int           // accepted clock drift, in 30s steps
}

// Login verifies the credentials and, on success, rebuilds the session under
// a fresh id. Accounts with 2FA enabled are left pending the second factor
// and ErrSecondFactorRequired is returned to signal the gate.
func (s *AuthService) Login(ctx context.Context, sess *domain.Session, email, password string, client ClientInfo) error {
	now := time.Now()
	l := slogx.FromContext(ctx)
	email = NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logAttempt(ctx, nil, email, client, false)
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.Active {
		return ErrAccountInactive
	}
	if user.LockedAt(now) {
		return ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if err := s.Store.Users().IncrementFailedAttempts(ctx, user.ID, s.maxFailedAttempts(), now.Add(s.lockDuration())); err != nil {
			return fmt.Errorf("failed to record failed attempt: %w", err)
		}
		s.logAttempt(ctx, &user.ID, email, client, false)
		return ErrInvalidCredentials
	}

	if err := s.Store.Users().ResetFailedAttempts(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to reset attempt counter: %w", err)
	}
	if err := s.Store.Users().RecordLogin(ctx, user.ID, now); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	slugs, err := s.Store.Users().RoleSlugs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}

	// Fresh id on every login so a pre-login cookie can never ride into an
	// authenticated session.
	sess.Clear()
	sess.ID = idx.New().String()
	sess.UserID = user.ID
	sess.Email = user.Email
	sess.Name = user.Name
	sess.Roles = slugs
	sess.LastActivity = now
	sess.CreatedAt = now

	s.logAttempt(ctx, &user.ID, email, client, true)
	l.Info("login", slog.String("user_id", user.ID))

	if user.TwoFactorEnabled {
		sess.TwoFactorRequired = true
		sess.PendingTwoFactorUser = user.ID
		return ErrSecondFactorRequired
	}
	return nil
}

// VerifyLoginOTP completes a login left pending by Login on a 2FA account.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, sess *domain.Session, code string) error {
	if !sess.PendingSecondFactor() {
		return ErrSecondFactorInvalid
	}

	user, err := s.Store.Users().GetUserByID(ctx, sess.PendingTwoFactorUser)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSecondFactorInvalid
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.TOTPSecret == nil || !totp.Verify(*user.TOTPSecret, code, s.otpWindow()) {
		return ErrSecondFactorInvalid
	}

	sess.TwoFactorVerified = true
	sess.PendingTwoFactorUser = ""
	slogx.FromContext(ctx).Info("second factor verified", slog.String("user_id", user.ID))
	return nil
}

// Touch refreshes the activity stamp, soft-locking the session instead when
// it has been idle past the timeout. Call it on every authenticated request.
func (s *AuthService) Touch(sess *domain.Session, now time.Time) error {
	if sess.Locked {
		return ErrSessionLocked
	}
	if !sess.LastActivity.IsZero() && now.Sub(sess.LastActivity) > s.sessionLockTimeout() {
		s.LockSession(sess, now)
		return ErrSessionLocked
	}
	sess.LastActivity = now
	return nil
}

// LockSession soft-locks the session. Session data is retained so Unlock can
// resume where the user left off.
func (s *AuthService) LockSession(sess *domain.Session, now time.Time) {
	sess.Locked = true
	at := now
	sess.LockedAt = &at
}

// Unlock clears a soft lock after re-verifying the user's password.
func (s *AuthService) Unlock(ctx context.Context, sess *domain.Session, password string) error {
	if sess.UserID == "" {
		return ErrInvalidCredentials
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

	sess.Locked = false
	sess.LockedAt = nil
	sess.LastActivity = time.Now()
	return nil
}

// Logout resets the session to anonymous.
func (s *AuthService) Logout(sess *domain.Session) {
	sess.Clear()
}

// RequireActive gates authenticated endpoints: the session must have
// completed login (second factor included), not be locked, and not have
// idled out. Touch runs as part of the check.
func (s *AuthService) RequireActive(sess *domain.Session, now time.Time) error {
	if !sess.Authenticated() {
		return ErrUnauthorized
	}
	return s.Touch(sess, now)
}

func (s *AuthService) logAttempt(ctx context.Context, userID *string, email string, client ClientInfo, success bool) {
	ua := client.UserAgent
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	err := s.Store.LoginAttempts().LogAttempt(ctx, domain.LoginAttempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		IP:        client.IP,
		UserAgent: ua,
		Success:   success,
	})
	if err != nil {
		// The attempt log is an audit trail, not a gate; a write failure
		// must not turn a good login into an error.
		slogx.FromContext(ctx).Error("failed to log login attempt", slog.Any("error", err))
	}
}

func (s *AuthService) maxFailedAttempts() int {
	if s.MaxFailedAttempts > 0 {
		return s.MaxFailedAttempts
	}
	return DefaultMaxFailedAttempts
}

func (s *AuthService) lockDuration() time.Duration {
	if s.LockDuration > 0 {
		return s.LockDuration
	}
	return DefaultLockDuration
}

func (s *AuthService) sessionLockTimeout() time.Duration {
	if s.SessionLockTimeout > 0 {
		return s.SessionLockTimeout
	}
	return DefaultSessionLockTimeout
}

func (s *AuthService) otpWindow() int {
	if s.OTPWindow > 0 {
		return s.OTPWindow
	}
	return DefaultOTPWindow
}

// NormalizeEmail lowercases and trims the address so lookups and uniqueness
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
