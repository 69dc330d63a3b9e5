package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeep/pkg/cryptox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "gatekeep-http-test-pepper")
	cryptox.SetPepperPath(pepperPath)
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := NewRouter("test", st, logger)

	auth := &service.AuthService{Store: st}
	r.AuthService = auth
	r.OTPService = &service.OTPService{Store: st, Auth: auth, Issuer: "GateKeep"}
	r.ResetService = &service.ResetService{Store: st, Mailer: service.LogMailer{}}
	r.UserService = &service.UserService{Store: st}
	r.RolesService = &service.RolesService{Store: st}
	r.AttemptsService = &service.AttemptsService{Store: st}
	r.BootstrapService = &service.BootstrapService{Users: r.UserService, Token: "bootstrap-token"}
	r.ApplyRoutes()
	return r
}

func seedAccount(t *testing.T, r *Router, email, password string, roleSlugs ...string) {
	t.Helper()
	ctx := context.Background()

	var roleIDs []string
	for _, slug := range roleSlugs {
		// The baseline roles already exist from the migrations.
		role, err := r.RolesService.GetBySlug(ctx, slug)
		if err != nil {
			role, err = r.RolesService.Create(ctx, slug, slug, "")
			require.NoError(t, err)
		}
		roleIDs = append(roleIDs, role.ID)
	}

	_, err := r.UserService.Create(ctx, service.CreateUserInput{
		Email:    email,
		Name:     "Test User",
		Password: password,
		Active:   true,
		RoleIDs:  roleIDs,
	})
	require.NoError(t, err)
}

type client struct {
	t       *testing.T
	router  *Router
	cookies []*http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.10:40000"
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rec
}

func TestLoginFlow(t *testing.T) {
	r := newTestRouter(t)
	seedAccount(t, r, "alice@example.com", "correct horse")
	c := &client{t: t, router: r}

	t.Run("anonymous session before login", func(t *testing.T) {
		rec := c.do(http.MethodGet, "/v1/auth/me", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"anonymous"`)
	})

	var preLogin string
	t.Run("login rotates the cookie", func(t *testing.T) {
		require.NotEmpty(t, c.cookies)
		preLogin = c.cookies[0].Value

		rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "correct horse",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"authenticated"`)
		require.NotEqual(t, preLogin, c.cookies[0].Value)
	})

	t.Run("old cookie no longer resolves", func(t *testing.T) {
		stale := &client{t: t, router: r, cookies: []*http.Cookie{{Name: SessionCookie, Value: preLogin}}}
		rec := stale.do(http.MethodGet, "/v1/auth/me", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"status":"anonymous"`)
	})

	t.Run("logout drops the session", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/v1/auth/logout", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.do(http.MethodGet, "/v1/auth/me", nil)
		require.Contains(t, rec.Body.String(), `"status":"anonymous"`)
	})
}

func TestLoginWithoutPriorSession(t *testing.T) {
	r := newTestRouter(t)
	seedAccount(t, r, "alice@example.com", "pw")
	c := &client{t: t, router: r}

	// Logging in with no cookie at all makes the response carry two session
	// cookies: the retired anonymous id written by the session middleware and
	// the rotated live one written by the handler. A client replaying both
	// must still resolve to the live session.
	rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"authenticated"`)

	// Even with a dead cookie sent ahead of the live one.
	live := c.cookies[len(c.cookies)-1]
	mixed := &client{t: t, router: r, cookies: []*http.Cookie{
		{Name: SessionCookie, Value: "gone"},
		{Name: SessionCookie, Value: live.Value},
	}}
	rec = mixed.do(http.MethodGet, "/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"authenticated"`)
}

func TestLoginRejections(t *testing.T) {
	r := newTestRouter(t)
	seedAccount(t, r, "alice@example.com", "pw")
	c := &client{t: t, router: r}

	t.Run("wrong password", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_credentials")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "alice@example.com"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminGate(t *testing.T) {
	r := newTestRouter(t)
	seedAccount(t, r, "admin@example.com", "pw", AdminRole)
	seedAccount(t, r, "plain@example.com", "pw")

	login := func(email string) *client {
		c := &client{t: t, router: r}
		rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": "pw"})
		require.Equal(t, http.StatusOK, rec.Code)
		return c
	}

	t.Run("anonymous is rejected", func(t *testing.T) {
		c := &client{t: t, router: r}
		rec := c.do(http.MethodGet, "/v1/admin/dashboard", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		c := login("plain@example.com")
		rec := c.do(http.MethodGet, "/v1/admin/dashboard", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin sees the dashboard", func(t *testing.T) {
		c := login("admin@example.com")
		rec := c.do(http.MethodGet, "/v1/admin/dashboard", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "user_count")
	})

	t.Run("admin user CRUD round trip", func(t *testing.T) {
		c := login("admin@example.com")

		rec := c.do(http.MethodPost, "/v1/admin/users", map[string]any{
			"email":    "new@example.com",
			"name":     "New User",
			"password": "pw",
			"active":   true,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		require.NotEmpty(t, created.ID)

		rec = c.do(http.MethodPatch, "/v1/admin/users/"+created.ID, map[string]any{"name": "Renamed"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Renamed")

		rec = c.do(http.MethodDelete, "/v1/admin/users/"+created.ID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = c.do(http.MethodGet, "/v1/admin/users/"+uuid.NewString(), nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLockAndUnlock(t *testing.T) {
	r := newTestRouter(t)
	seedAccount(t, r, "alice@example.com", "pw")
	c := &client{t: t, router: r}

	rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/v1/auth/lock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"locked"`)

	// Locked sessions are shut out of gated routes.
	rec = c.do(http.MethodPost, "/v1/otp/enroll", nil)
	require.Equal(t, http.StatusLocked, rec.Code)

	rec = c.do(http.MethodPost, "/v1/auth/unlock", map[string]string{"password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "unlock_failed")

	rec = c.do(http.MethodPost, "/v1/auth/unlock", map[string]string{"password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"authenticated"`)
}

func TestInactivityLock(t *testing.T) {
	r := newTestRouter(t)
	seedAccount(t, r, "alice@example.com", "pw")
	c := &client{t: t, router: r}

	rec := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	var sess *domain.Session
	for _, ck := range c.cookies {
		if s := r.Sessions.Get(ck.Value); s != nil {
			sess = s
		}
	}
	require.NotNil(t, sess)

	// Backdate the session past the inactivity window; the next status read
	// must report it locked rather than authenticated.
	sess.LastActivity = time.Now().Add(-16 * time.Minute)

	rec = c.do(http.MethodGet, "/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"locked"`)
	require.True(t, sess.Locked)

	rec = c.do(http.MethodPost, "/v1/auth/unlock", map[string]string{"password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"authenticated"`)
}

func TestBootstrapEndpoint(t *testing.T) {
	r := newTestRouter(t)
	c := &client{t: t, router: r}

	body := map[string]string{
		"token":    "bootstrap-token",
		"email":    "root@example.com",
		"name":     "Root",
		"password": "pw",
	}

	t.Run("wrong token is rejected", func(t *testing.T) {
		bad := map[string]string{"token": "nope", "email": "root@example.com", "name": "Root", "password": "pw"}
		rec := c.do(http.MethodPost, "/v1/auth/bootstrap", bad)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("creates a working admin", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/v1/auth/bootstrap", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "root@example.com", "password": "pw"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = c.do(http.MethodGet, "/v1/admin/dashboard", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("refuses once an account exists", func(t *testing.T) {
		rec := c.do(http.MethodPost, "/v1/auth/bootstrap", body)
		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRegister(t *testing.T) {
	// Registration must work on a freshly migrated database with no
	// operator setup at all.
	r := newTestRouter(t)
	c := &client{t: t, router: r}

	rec := c.do(http.MethodPost, "/v1/auth/register", map[string]string{
		"email":    "newbie@example.com",
		"name":     "Newbie",
		"password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.do(http.MethodPost, "/v1/auth/register", map[string]string{
		"email":    "newbie@example.com",
		"name":     "Dup",
		"password": "pw",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}
