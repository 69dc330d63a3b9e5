package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID carries the authenticated user's id, injected by the
	// hosting layer's session middleware.
	CtxKeyUserID ctxKey = "user_id"
)

// ContextWithUserID attaches the authenticated user id for downstream
// middleware (rate limiting by user, audit logging).
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}
