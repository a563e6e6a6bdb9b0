// Package email provides outbound mail delivery over SMTP.
package email

import (
	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/globalbeauty/concierge-api/internal/config"
)

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type smtpSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   zerolog.Logger
}

// NewSMTPSender builds a Sender backed by gomail. A dialer is created once
// and reused; gomail opens a fresh connection per send.
func NewSMTPSender(cfg config.SMTPConfig, logger zerolog.Logger) Sender {
	return &smtpSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger.With().Str("component", "email").Logger(),
	}
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("failed to send email")
		return err
	}

	s.logger.Debug().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
