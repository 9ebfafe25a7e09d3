package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/wneessen/go-mail"
)

var _ Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends account emails over authenticated SMTP.
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *slog.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, logger *slog.Logger) (*SMTPMailer, error) {
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: creating smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: from, logger: logger}, nil
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, username, link string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome! Please verify your email address by opening the link below. "+
			"The link is valid for one hour.\n\n%s\n\nIf you did not sign up, ignore this email.\n",
		username, link)
	return m.send(ctx, to, "Verify your email address", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, link string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account. Open the link below "+
			"to choose a new password. The link is valid for 20 minutes.\n\n%s\n\n"+
			"If you did not request this, your password is unchanged.\n",
		username, link)
	return m.send(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mailer: setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: setting recipient %s: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperror.Upstream("sending email", err)
	}

	m.logger.Debug("email sent",
		slog.String("to", to),
		slog.String("subject", subject))
	return nil
}
