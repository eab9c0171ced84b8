package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/jordanlanch/restoplan/pkg/logger"
)

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	useSendGrid bool
	logger      logger.Logger
}

// NewService creates a new email service.
// If sendGridAPIKey is provided, emails are sent via SendGrid;
// otherwise they are only logged (development mode).
func NewService(fromEmail, fromName, sendGridAPIKey string, log logger.Logger) *Service {
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Info("email service initialized with SendGrid")
	} else {
		log.Warn("email service in console-only mode, set SENDGRID_API_KEY for production")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
		logger:      log,
	}
}

// SendRawEmail sends an email with custom subject and body content.
func (s *Service) SendRawEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	if toEmail == "" {
		return fmt.Errorf("missing recipient address")
	}

	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody)
	}

	s.logger.Info("email not sent (development mode)",
		"subject", subject,
		"to", toEmail,
		"from", s.fromEmail,
	)
	return nil
}

// buildMessage assembles the SendGrid payload.
func (s *Service) buildMessage(toEmail, toName, subject, htmlBody, plainTextBody string) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	return mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	message := s.buildMessage(toEmail, toName, subject, htmlBody, plainTextBody)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	s.logger.Info("email sent", "to", toEmail, "status", response.StatusCode)
	return nil
}
