package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPMailer implements Mailer over SMTP using gomail.
type SMTPMailer struct {
	dialer     *gomail.Dialer
	from       string
	senderName string
	logger     *zap.Logger
}

func NewSMTPMailer(host string, port int, username, password, fromEmail, senderName string, logger *zap.Logger) (*SMTPMailer, error) {
	if host == "" || port == 0 || fromEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}

	dialer := gomail.NewDialer(host, port, username, password)
	dialer.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}

	return &SMTPMailer{
		dialer:     dialer,
		from:       fromEmail,
		senderName: senderName,
		logger:     logger.Named("SMTPMailer"),
	}, nil
}

func (s *SMTPMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	m := gomail.NewMessage()
	if s.senderName != "" {
		m.SetHeader("From", m.FormatAddress(s.from, s.senderName))
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if htmlBody != "" {
		m.SetBody("text/html", htmlBody)
		if textBody != "" {
			m.AddAlternative("text/plain", textBody)
		}
	} else if textBody != "" {
		m.SetBody("text/plain", textBody)
	} else {
		return fmt.Errorf("email body (HTML or text) must be provided")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("Email sending cancelled or timed out by context",
			zap.String("to", to), zap.String("subject", subject), zap.Error(ctx.Err()))
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.logger.Error("Failed to send email via SMTP",
				zap.String("to", to), zap.String("subject", subject), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.logger.Info("Email sent successfully via SMTP", zap.String("to", to), zap.String("subject", subject))
	return nil
}
