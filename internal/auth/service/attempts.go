package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
)

// AttemptsService exposes the login audit trail to the admin surface.
type AttemptsService struct {
	Store store.Store
}

// ListRecent returns the newest attempts, capped at limit.
func (s *AttemptsService) ListRecent(ctx context.Context, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Store.LoginAttempts().ListRecentAttempts(ctx, limit)
}

// CountRecentFailures counts a user's failed attempts since the cutoff.
func (s *AttemptsService) CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error) {
	return s.Store.LoginAttempts().CountRecentFailures(ctx, userID, since)
}

// Count returns the total number of recorded attempts.
func (s *AttemptsService) Count(ctx context.Context) (int, error) {
	return s.Store.LoginAttempts().CountAttempts(ctx)
}
