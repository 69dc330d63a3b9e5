package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// AuthHandler covers login, logout, the session lock surface, and
// self-registration.
type AuthHandler struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Sessions *SessionStore
}

type sessionResponse struct {
	Status string   `json:"status"`
	UserID string   `json:"user_id,omitempty"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

func sessionBody(sess *domain.Session) sessionResponse {
	status := "anonymous"
	switch {
	case sess.PendingSecondFactor():
		status = "second_factor_required"
	case sess.Locked:
		status = "locked"
	case sess.Authenticated():
		status = "authenticated"
	}
	resp := sessionResponse{Status: status}
	if sess.UserID != "" && !sess.PendingSecondFactor() {
		resp.UserID = sess.UserID
		resp.Email = sess.Email
		resp.Name = sess.Name
		resp.Roles = sess.Roles
	}
	return resp
}

// HandleLogin handles POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	oldID := sess.ID
	client := service.ClientInfo{IP: httpx.IPKeyExtractor(r), UserAgent: r.UserAgent()}
	err := h.Auth.Login(ctx, sess, req.Email, req.Password, client)
	switch {
	case err == nil, errors.Is(err, service.ErrSecondFactorRequired):
		// Login rekeyed the session; retire the pre-login cookie id.
		h.Sessions.Swap(oldID, sess)
		setSessionCookie(w, sess.ID)
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, sessionBody(sess))
	default:
		writeError(w, err)
	}
}

// HandleVerifyOTP handles POST /v1/auth/otp/verify, completing a 2FA login.
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.Auth.VerifyLoginOTP(ctx, sess, req.Code); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionBody(sess))
}

// HandleLogout handles POST /v1/auth/logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	h.Sessions.Delete(sess.ID)
	h.Auth.Logout(sess)
	clearSessionCookie(w)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Status: "anonymous"})
}

// HandleLock handles POST /v1/auth/lock, soft-locking the current session.
func (h *AuthHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if !sess.Authenticated() {
		writeError(w, service.ErrUnauthorized)
		return
	}

	// The inactivity check may have beaten the user to it; either way the
	// session ends up locked.
	now := time.Now()
	if err := h.Auth.Touch(sess, now); err == nil {
		h.Auth.LockSession(sess, now)
	}
	httpx.WriteJSON(w, http.StatusOK, sessionBody(sess))
}

// HandleUnlock handles POST /v1/auth/unlock. Failure gets its own message so
// the lock screen can distinguish a bad password from a dead session.
func (h *AuthHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.Auth.Unlock(ctx, sess, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "unlock_failed",
				"error_description": "password does not match the locked session",
			})
			return
		}
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionBody(sess))
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeBadRequest(w, "email, name and password are required")
		return
	}

	user, err := h.Users.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "email_taken"})
			return
		}
		log.Error("registration failed", "err", err)
		writeError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// HandleMe handles GET /v1/auth/me, reporting the current session state. The
// inactivity check runs here too: an idle session locks and the body says so.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess.Authenticated() {
		_ = h.Auth.Touch(sess, time.Now())
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sessionBody(sess))
}
