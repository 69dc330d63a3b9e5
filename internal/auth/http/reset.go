package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// ResetHandler covers the forgot-password flow.
type ResetHandler struct {
	Reset *service.ResetService
}

// HandleRequest handles POST /v1/auth/forgot. The response is the same
// whether or not the email has an account behind it.
func (h *ResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	if err := h.Reset.Request(ctx, req.Email); err != nil {
		// Deliberately the same body as success. The failure is logged for
		// operators; the caller learns nothing about the address.
		slogx.FromContext(ctx).Error("reset request failed", "err", err)
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleConsume handles POST /v1/auth/reset.
func (h *ResetHandler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeBadRequest(w, "token and new_password are required")
		return
	}

	if err := h.Reset.Consume(ctx, req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}
