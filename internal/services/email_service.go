package services

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"dealdesk/internal/models"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService mails the deal owner when a deal is closed.
type EmailService struct {
	dialer mailSender
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) *EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &EmailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *EmailService) DealClosed(ctx context.Context, owner *models.Identity, deal *models.Deal) error {
	if owner == nil || owner.Email == "" {
		return nil
	}
	outcome := closedOutcome(deal.Stage)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", owner.Email)
	m.SetHeader("Subject", fmt.Sprintf("Deal %s: %s", outcome, deal.Name))

	body := fmt.Sprintf(`
		<h2>%s is closed (%s)</h2>
		<p>The deal was moved to <strong>%s</strong>.</p>
		<p>Deal id: %s</p>
	`, html.EscapeString(deal.Name), outcome, deal.Stage, deal.ID)

	m.SetBody("text/html", body)

	if err := sendWithContext(ctx, func() error { return s.dialer.DialAndSend(m) }); err != nil {
		return fmt.Errorf("failed to send deal closed email: %w", err)
	}
	return nil
}
