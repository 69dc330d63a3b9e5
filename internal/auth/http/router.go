package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// AdminRole is the role slug that opens the admin surface.
const AdminRole = "admin"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *SessionStore

	AuthService      *service.AuthService
	OTPService       *service.OTPService
	ResetService     *service.ResetService
	UserService      *service.UserService
	RolesService     *service.RolesService
	AttemptsService  *service.AttemptsService
	BootstrapService *service.BootstrapService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		Sessions:     NewSessionStore(),
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerOTP()
	r.registerReset()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService, Users: r.UserService, Sessions: r.Sessions}

	// POST /login - strict rate limit by IP (authentication attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.WithSession,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /otp/verify - strict rate limit (six digit codes brute-force fast)
	r.Mux.Handle("POST /v1/auth/otp/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP),
			r.WithSession,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /bootstrap - first-run admin creation, token gated.
	b := &BootstrapHandler{Bootstrap: r.BootstrapService}
	r.Mux.Handle("POST /v1/auth/bootstrap",
		httpx.Chain(http.HandlerFunc(b.HandleBootstrap),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.WithSession,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/lock",
		httpx.Chain(http.HandlerFunc(h.HandleLock),
			r.WithSession,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /unlock - strict rate limit; it accepts a password.
	r.Mux.Handle("POST /v1/auth/unlock",
		httpx.Chain(http.HandlerFunc(h.HandleUnlock),
			r.WithSession,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.WithSession,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{OTP: r.OTPService}

	// Enrollment management needs a fully active session; the services gate
	// again internally.
	r.Mux.Handle("POST /v1/otp/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			r.WithSession, r.RequireActive,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /otp/enable - strict limit (it verifies codes)
	r.Mux.Handle("POST /v1/otp/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			r.WithSession, r.RequireActive,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// POST /otp/disable - strict limit (it verifies passwords)
	r.Mux.Handle("POST /v1/otp/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			r.WithSession, r.RequireActive,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerReset() {
	h := &ResetHandler{Reset: r.ResetService}

	// Both legs are anonymous and credential-adjacent: strict IP limits.
	r.Mux.Handle("POST /v1/auth/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/reset",
		httpx.Chain(http.HandlerFunc(h.HandleConsume),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	users := &AdminUsersHandler{Users: r.UserService}
	roles := &AdminRolesHandler{Roles: r.RolesService}
	dash := &DashboardHandler{
		Users:    r.UserService,
		Roles:    r.RolesService,
		Attempts: r.AttemptsService,
		Sessions: r.Sessions,
	}

	// Every admin route: live session + admin role + per-user moderate limit.
	secured := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			r.WithSession, r.RequireActive, r.RequireRole(AdminRole),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/admin/dashboard", secured(dash.HandleDashboard))
	r.Mux.Handle("GET /v1/admin/attempts", secured(dash.HandleAttempts))

	r.Mux.Handle("GET /v1/admin/users", secured(users.HandleList))
	r.Mux.Handle("POST /v1/admin/users", secured(users.HandleCreate))
	r.Mux.Handle("GET /v1/admin/users/{id}", secured(users.HandleGet))
	r.Mux.Handle("PATCH /v1/admin/users/{id}", secured(users.HandleUpdate))
	r.Mux.Handle("POST /v1/admin/users/{id}/unlock", secured(users.HandleUnlock))
	r.Mux.Handle("DELETE /v1/admin/users/{id}", secured(users.HandleDelete))

	r.Mux.Handle("GET /v1/admin/roles", secured(roles.HandleList))
	r.Mux.Handle("POST /v1/admin/roles", secured(roles.HandleCreate))
	r.Mux.Handle("PATCH /v1/admin/roles/{id}", secured(roles.HandleUpdate))
	r.Mux.Handle("DELETE /v1/admin/roles/{id}", secured(roles.HandleDelete))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
