package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeep/pkg/totp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Set up a temporary pepper file for testing
	tmpDir := os.TempDir()
	pepperPath := filepath.Join(tmpDir, "gatekeep-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	// Clean up pepper file before and after tests
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestAuth(st *sqlite.Store) *AuthService {
	return &AuthService{Store: st}
}

type seedUserOpts struct {
	active     bool
	totpSecret string
	roleSlugs  []string
}

func seedUser(t *testing.T, st *sqlite.Store, email, password string, opts seedUserOpts) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	var roleIDs []string
	for _, slug := range opts.roleSlugs {
		// Migrations seed the baseline roles, so look up before creating.
		role, err := st.Roles().GetRoleBySlug(ctx, slug)
		if err != nil {
			role = domain.Role{ID: uuid.NewString(), Slug: slug, Name: slug}
			require.NoError(t, st.Roles().CreateRole(ctx, role))
		}
		roleIDs = append(roleIDs, role.ID)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Active:       opts.active,
	}
	require.NoError(t, st.Users().CreateUser(ctx, user, roleIDs))

	if opts.totpSecret != "" {
		secret := opts.totpSecret
		require.NoError(t, st.Users().SetTwoFactor(ctx, user.ID, true, &secret))
	}
	return user
}

func currentCode(secret string) string {
	return totp.At(secret, totp.TimeSlice(time.Now()))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success fills the session under a fresh id", func(t *testing.T) {
		st := newTestStore(t)
		svc := newTestAuth(st)
		user := seedUser(t, st, "alice@example.com", "correct horse", seedUserOpts{active: true, roleSlugs: []string{"admin", "user"}})

		sess := &domain.Session{}
		require.NoError(t, svc.Login(ctx, sess, "Alice@Example.com", "correct horse", ClientInfo{IP: "10.0.0.1"}))

		require.NotEmpty(t, sess.ID)
		require.Equal(t, user.ID, sess.UserID)
		require.Equal(t, "alice@example.com", sess.Email)
		require.Equal(t, []string{"admin", "user"}, sess.Roles)
		require.True(t, sess.Authenticated())

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastLoginAt)

		attempts, err := st.LoginAttempts().ListRecentAttempts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		require.True(t, attempts[0].Success)
		require.NotNil(t, attempts[0].UserID)
	})

	t.Run("regenerates the id on every login", func(t *testing.T) {
		st := newTestStore(t)
		svc := newTestAuth(st)
		seedUser(t, st, "alice@example.com", "pw", seedUserOpts{active: true})

		first := &domain.Session{}
		require.NoError(t, svc.Login(ctx, first, "alice@example.com", "pw", ClientInfo{}))
		second := &domain.Session{ID: first.ID}
		require.NoError(t, svc.Login(ctx, second, "alice@example.com", "pw", ClientInfo{}))
		require.NotEqual(t, first.ID, second.ID)
	})

	t.Run("unknown email is invalid credentials and still audited", func(t *testing.T) {
		st := newTestStore(t)
		svc := newTestAuth(st)

		sess := &domain.Session{}
		err := svc.Login(ctx, sess, "ghost@example.com", "whatever", ClientInfo{IP: "10.0.0.9"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.False(t, sess.Authenticated())

		attempts, err := st.LoginAttempts().ListRecentAttempts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		require.False(t, attempts[0].Success)
		require.Nil(t, attempts[0].UserID)
	})

	t.Run("inactive account is rejected before the password check", func(t *testing.T) {
		st := newTestStore(t)
		svc := newTestAuth(st)
		seedUser(t, st, "bob@example.com", "pw", seedUserOpts{active: false})

		err := svc.Login(ctx, &domain.Session{}, "bob@example.com", "pw", ClientInfo{})
		require.ErrorIs(t, err, ErrAccountInactive)
	})

	t.Run("locks after repeated failures", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AuthService{Store: st, MaxFailedAttempts: 3}
		user := seedUser(t, st, "carol@example.com", "right", seedUserOpts{active: true})

		for range 3 {
			err := svc.Login(ctx, &domain.Session{}, "carol@example.com", "wrong", ClientInfo{})
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, 3, stored.FailedAttempts)
		require.NotNil(t, stored.LockedUntil)

		// Even the right password bounces off the lock.
		err = svc.Login(ctx, &domain.Session{}, "carol@example.com", "right", ClientInfo{})
		require.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("expired lock admits a correct password and resets the counter", func(t *testing.T) {
		st := newTestStore(t)
		svc := &AuthService{Store: st, MaxFailedAttempts: 1}
		user := seedUser(t, st, "dave@example.com", "pw", seedUserOpts{active: true})

		// Arm a lock that has already passed.
		require.NoError(t, st.Users().IncrementFailedAttempts(ctx, user.ID, 1, time.Now().Add(-time.Minute)))

		sess := &domain.Session{}
		require.NoError(t, svc.Login(ctx, sess, "dave@example.com", "pw", ClientInfo{}))
		require.True(t, sess.Authenticated())

		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, 0, stored.FailedAttempts)
		require.Nil(t, stored.LockedUntil)
	})
}

func TestLoginSecondFactor(t *testing.T) {
	ctx := context.Background()
	secret, err := totp.GenerateSecret(totp.DefaultSecretLength)
	require.NoError(t, err)

	setup := func(t *testing.T) (*AuthService, *domain.Session) {
		st := newTestStore(t)
		svc := newTestAuth(st)
		seedUser(t, st, "eve@example.com", "pw", seedUserOpts{active: true, totpSecret: secret})

		sess := &domain.Session{}
		err := svc.Login(ctx, sess, "eve@example.com", "pw", ClientInfo{})
		require.ErrorIs(t, err, ErrSecondFactorRequired)
		require.True(t, sess.PendingSecondFactor())
		require.False(t, sess.Authenticated())
		return svc, sess
	}

	t.Run("valid code completes the login", func(t *testing.T) {
		svc, sess := setup(t)
		require.NoError(t, svc.VerifyLoginOTP(ctx, sess, currentCode(secret)))
		require.True(t, sess.Authenticated())
		require.False(t, sess.PendingSecondFactor())
	})

	t.Run("wrong code is rejected and the session stays pending", func(t *testing.T) {
		svc, sess := setup(t)
		err := svc.VerifyLoginOTP(ctx, sess, "000000")
		require.ErrorIs(t, err, ErrSecondFactorInvalid)
		require.False(t, sess.Authenticated())
		require.True(t, sess.PendingSecondFactor())
	})

	t.Run("verify without a pending login is rejected", func(t *testing.T) {
		svc, _ := setup(t)
		err := svc.VerifyLoginOTP(ctx, &domain.Session{}, currentCode(secret))
		require.ErrorIs(t, err, ErrSecondFactorInvalid)
	})
}

func TestTouchAndUnlock(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T) (*AuthService, *domain.Session) {
		st := newTestStore(t)
		svc := &AuthService{Store: st, SessionLockTimeout: 10 * time.Minute}
		seedUser(t, st, "frank@example.com", "pw", seedUserOpts{active: true})

		sess := &domain.Session{}
		require.NoError(t, svc.Login(ctx, sess, "frank@example.com", "pw", ClientInfo{}))
		return svc, sess
	}

	t.Run("recent activity refreshes the stamp", func(t *testing.T) {
		svc, sess := login(t)
		later := time.Now().Add(5 * time.Minute)
		require.NoError(t, svc.Touch(sess, later))
		require.Equal(t, later, sess.LastActivity)
		require.False(t, sess.Locked)
	})

	t.Run("idle session soft-locks", func(t *testing.T) {
		svc, sess := login(t)
		err := svc.Touch(sess, time.Now().Add(11*time.Minute))
		require.ErrorIs(t, err, ErrSessionLocked)
		require.True(t, sess.Locked)
		require.NotNil(t, sess.LockedAt)
		// Data survives the lock for Unlock to resume.
		require.NotEmpty(t, sess.UserID)
	})

	t.Run("unlock re-verifies the password", func(t *testing.T) {
		svc, sess := login(t)
		svc.LockSession(sess, time.Now())

		require.ErrorIs(t, svc.Unlock(ctx, sess, "wrong"), ErrInvalidCredentials)
		require.True(t, sess.Locked)

		require.NoError(t, svc.Unlock(ctx, sess, "pw"))
		require.False(t, sess.Locked)
		require.Nil(t, sess.LockedAt)
		require.NoError(t, svc.RequireActive(sess, time.Now()))
	})

	t.Run("logout resets to anonymous", func(t *testing.T) {
		svc, sess := login(t)
		svc.Logout(sess)
		require.Empty(t, sess.UserID)
		require.Empty(t, sess.Roles)
		require.ErrorIs(t, svc.RequireActive(sess, time.Now()), ErrUnauthorized)
	})
}

func TestRequireActive(t *testing.T) {
	svc := &AuthService{}

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		require.ErrorIs(t, svc.RequireActive(&domain.Session{}, time.Now()), ErrUnauthorized)
	})

	t.Run("pending second factor is unauthorized", func(t *testing.T) {
		sess := &domain.Session{UserID: "u1", TwoFactorRequired: true, PendingTwoFactorUser: "u1"}
		require.ErrorIs(t, svc.RequireActive(sess, time.Now()), ErrUnauthorized)
	})

	t.Run("locked session is rejected", func(t *testing.T) {
		sess := &domain.Session{UserID: "u1", Locked: true, LastActivity: time.Now()}
		require.ErrorIs(t, svc.RequireActive(sess, time.Now()), ErrSessionLocked)
	})
}
