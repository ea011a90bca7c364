package notification

import (
	"context"

	"github.com/go-verify-nosql/internal/domain"
)

type mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// EmailSender renders a notification and mails it.
type EmailSender struct {
	mailer    mailer
	templates *Templates
}

func NewEmailSender(m mailer, t *Templates) *EmailSender {
	if t == nil {
		t = DefaultTemplates()
	}
	return &EmailSender{mailer: m, templates: t}
}

func (s *EmailSender) Send(ctx context.Context, recipient string, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := s.templates.Render(n)
	if err != nil {
		return err
	}
	return s.mailer.SendEmail(recipient, subject, body)
}
