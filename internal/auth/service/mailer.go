package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/gatekeep/pkg/slogx"
)

// Mailer delivers outbound mail. The transport lives outside this service;
// deployments plug in whatever delivery they have.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes mail to the log instead of sending it. Dev only: it
// prints raw reset tokens.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	slogx.FromContext(ctx).Info("password reset mail",
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}
