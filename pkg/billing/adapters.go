package billing

import "github.com/jordanlanch/restoplan/pkg/email"

// EmailServiceAdapter lets email.Service deliver billing notifications.
type EmailServiceAdapter struct {
	service *email.Service
}

func NewEmailServiceAdapter(s *email.Service) *EmailServiceAdapter {
	return &EmailServiceAdapter{service: s}
}

func (a *EmailServiceAdapter) SendEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	return a.service.SendRawEmail(toEmail, toName, subject, htmlBody, plainTextBody)
}
