package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// DashboardHandler backs the admin overview: entity counts, live session
// count, and the newest login attempts.
type DashboardHandler struct {
	Users    *service.UserService
	Roles    *service.RolesService
	Attempts *service.AttemptsService
	Sessions *SessionStore
}

type attemptResponse struct {
	Email     string    `json:"email"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleDashboard handles GET /v1/admin/dashboard.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.Users.Count(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	roles, err := h.Roles.Count(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	attempts, err := h.Attempts.Count(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	recent, err := h.Attempts.ListRecent(ctx, 20)
	if err != nil {
		writeError(w, err)
		return
	}

	recentOut := make([]attemptResponse, 0, len(recent))
	for _, a := range recent {
		recentOut = append(recentOut, attemptBody(a))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user_count":      users,
		"role_count":      roles,
		"attempt_count":   attempts,
		"session_count":   h.Sessions.Len(),
		"recent_attempts": recentOut,
	})
}

// HandleAttempts handles GET /v1/admin/attempts, the full audit listing.
func (h *DashboardHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	recent, err := h.Attempts.ListRecent(r.Context(), 100)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]attemptResponse, 0, len(recent))
	for _, a := range recent {
		out = append(out, attemptBody(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"attempts": out})
}

func attemptBody(a domain.LoginAttempt) attemptResponse {
	return attemptResponse{
		Email:     a.Email,
		IP:        a.IP,
		UserAgent: a.UserAgent,
		Success:   a.Success,
		CreatedAt: a.CreatedAt,
	}
}
