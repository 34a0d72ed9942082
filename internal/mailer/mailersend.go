package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const mailerSendAPIURL = "https://api.mailersend.com/v1/email"

// MailerSendMailer implements Mailer against the MailerSend HTTP API.
type MailerSendMailer struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
	logger    *zap.Logger
}

func NewMailerSendMailer(apiKey, fromEmail, fromName string, logger *zap.Logger) *MailerSendMailer {
	return &MailerSendMailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("MailerSendMailer"),
	}
}

type mailerSendRequest struct {
	From    emailAddress   `json:"from"`
	To      []emailAddress `json:"to"`
	Subject string         `json:"subject"`
	Text    string         `json:"text"`
	HTML    string         `json:"html,omitempty"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (s *MailerSendMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	s.logger.Info("Attempting to send email via MailerSend", zap.String("to", to))

	requestPayload := mailerSendRequest{
		From: emailAddress{
			Email: s.fromEmail,
			Name:  s.fromName,
		},
		To:      []emailAddress{{Email: to}},
		Subject: subject,
		Text:    textBody,
		HTML:    htmlBody,
	}

	payloadBytes, err := json.Marshal(requestPayload)
	if err != nil {
		s.logger.Error("Failed to marshal MailerSend request payload", zap.Error(err))
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mailerSendAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		s.logger.Error("Failed to create MailerSend HTTP request", zap.Error(err))
		return fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to send request to MailerSend", zap.Error(err))
		return fmt.Errorf("failed to send request to MailerSend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		s.logger.Error("MailerSend API request failed", zap.Int("statusCode", resp.StatusCode))
		return fmt.Errorf("MailerSend API request failed with status code %d", resp.StatusCode)
	}

	s.logger.Info("Email sent successfully via MailerSend", zap.String("to", to), zap.String("messageID", resp.Header.Get("X-Message-Id")))
	return nil
}
