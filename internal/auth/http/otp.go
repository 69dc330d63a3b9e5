package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// OTPHandler manages second-factor enrollment for the logged-in user. All
// routes sit behind RequireActive.
type OTPHandler struct {
	OTP *service.OTPService
}

// HandleEnroll handles POST /v1/otp/enroll.
func (h *OTPHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	enr, err := h.OTP.Enroll(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}

	// The secret goes over the wire exactly once, at enrollment.
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"secret":           enr.Secret,
		"provisioning_uri": enr.ProvisioningURI,
	})
}

// HandleEnable handles POST /v1/otp/enable.
func (h *OTPHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	var req struct {
		Secret string `json:"secret"`
		Code   string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.OTP.Enable(ctx, sess, req.Secret, req.Code); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// HandleDisable handles POST /v1/otp/disable.
func (h *OTPHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.OTP.Disable(ctx, sess, req.Password); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}
