// Package mailer sends owner notifications over SMTP.
package mailer

import (
	"fmt"

	"github.com/Corey-Yule/caravan-site/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPMailer struct {
	cfg    *config.SMTPConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

func NewSMTPMailer(cfg *config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	m := &SMTPMailer{
		cfg:    cfg,
		logger: logger.Named("SMTPMailer"),
	}
	if m.configured() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	} else {
		m.logger.Warn("SMTP configuration incomplete, email notifications disabled")
	}
	return m
}

// SendListingCreated mails the listing owner a confirmation. With incomplete
// SMTP configuration it is a no-op rather than an error, so listing creation
// never depends on the mail server.
func (m *SMTPMailer) SendListingCreated(toEmail, listingTitle string) error {
	if m.dialer == nil {
		m.logger.Debug("Skipping email, mailer not configured", zap.String("to", toEmail))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.SenderEmail)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "Your listing is live")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi,\n\nYour listing %q has been published and is now visible to buyers.\n\nThe CaravanHub team", listingTitle))

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("Failed to send listing email",
			zap.String("to", toEmail), zap.Error(err))
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	m.logger.Info("Listing email sent", zap.String("to", toEmail))
	return nil
}

func (m *SMTPMailer) configured() bool {
	return m.cfg.Host != "" && m.cfg.Port != 0 && m.cfg.SenderEmail != ""
}
