// Package mailer sends the account emails: verification links at signup
// and password reset links on request.
package mailer

import (
	"context"
	"log/slog"
)

// Mailer delivers account emails. Implementations must not block past
// the context deadline.
type Mailer interface {
	SendVerification(ctx context.Context, to, username, link string) error
	SendPasswordReset(ctx context.Context, to, username, link string) error
}

var _ Mailer = (*LogMailer)(nil)

// LogMailer is the development fallback when no SMTP host is configured:
// it logs the link instead of sending it, so the flow stays testable
// end to end.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(_ context.Context, to, username, link string) error {
	m.logger.Info("smtp not configured, logging verification link",
		slog.String("to", to),
		slog.String("username", username),
		slog.String("link", link))
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, username, link string) error {
	m.logger.Info("smtp not configured, logging password reset link",
		slog.String("to", to),
		slog.String("username", username),
		slog.String("link", link))
	return nil
}
