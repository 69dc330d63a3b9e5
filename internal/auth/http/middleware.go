package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

// sessionFromContext returns the session attached by WithSession. Handlers
// behind the middleware can assume it is present.
func sessionFromContext(ctx context.Context) *domain.Session {
	sess, _ := ctx.Value(ctxKeySession).(*domain.Session)
	return sess
}

// WithSession resolves the cookie to a live session, minting an anonymous one
// when the cookie is absent or stale, and attaches it to the request context.
// Login rotates the session id mid-response, so a client can legitimately
// carry both the retired and the live cookie; every candidate is tried and
// the one that still resolves wins.
func (r *Router) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var sess *domain.Session
		for _, c := range req.CookiesNamed(SessionCookie) {
			if sess = r.Sessions.Get(c.Value); sess != nil {
				break
			}
		}
		if sess == nil {
			sess = newSession()
			r.Sessions.Put(sess)
			setSessionCookie(w, sess.ID)
		}

		ctx := context.WithValue(req.Context(), ctxKeySession, sess)
		if sess.UserID != "" {
			ctx = httpx.ContextWithUserID(ctx, sess.UserID)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// RequireActive gates a route on a fully logged-in, unlocked, non-idle
// session. The inactivity check runs here, so every request behind this
// middleware refreshes the activity stamp.
func (r *Router) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sess := sessionFromContext(req.Context())
		if sess == nil {
			writeError(w, service.ErrUnauthorized)
			return
		}
		if err := r.AuthService.RequireActive(sess, time.Now()); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// RequireRole gates a route on the session's role snapshot.
func (r *Router) RequireRole(slugs ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := sessionFromContext(req.Context())
			if sess == nil {
				writeError(w, service.ErrUnauthorized)
				return
			}
			if err := service.RequireAnyRole(sess.Roles, slugs); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// writeError maps service sentinels onto statuses with fixed machine codes.
// Anything unrecognized is a 500 with no detail leaked.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "server_error"

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, service.ErrAccountInactive):
		status, code = http.StatusForbidden, "account_inactive"
	case errors.Is(err, service.ErrAccountLocked):
		status, code = http.StatusForbidden, "account_locked"
	case errors.Is(err, service.ErrSecondFactorInvalid):
		status, code = http.StatusUnauthorized, "second_factor_invalid"
	case errors.Is(err, service.ErrSessionLocked):
		status, code = http.StatusLocked, "session_locked"
	case errors.Is(err, service.ErrTokenExpiredOrInvalid):
		status, code = http.StatusBadRequest, "token_expired_or_invalid"
	case errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	}

	httpx.WriteJSON(w, status, map[string]string{"error": code})
}

func writeBadRequest(w http.ResponseWriter, description string) {
	httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{
		"error":             "invalid_request",
		"error_description": description,
	})
}
