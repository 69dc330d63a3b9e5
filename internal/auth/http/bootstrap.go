package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// BootstrapHandler exposes first-run setup. The route goes dead once any
// account exists.
type BootstrapHandler struct {
	Bootstrap *service.BootstrapService
}

// HandleBootstrap handles POST /v1/auth/bootstrap, creating the first admin
// account from the pre-configured bootstrap token.
func (h *BootstrapHandler) HandleBootstrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Token    string `json:"token"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" || req.Email == "" || req.Name == "" || req.Password == "" {
		writeBadRequest(w, "token, email, name and password are required")
		return
	}

	user, err := h.Bootstrap.Bootstrap(ctx, req.Token, req.Email, req.Name, req.Password)
	switch {
	case errors.Is(err, service.ErrBootstrapAlready):
		httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "already_bootstrapped"})
	case errors.Is(err, service.ErrBootstrapUnauthorized):
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	case err != nil:
		writeError(w, err)
	default:
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{
			"user_id": user.ID,
			"email":   user.Email,
		})
	}
}
