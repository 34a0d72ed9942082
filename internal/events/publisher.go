package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	UserRegisteredSubject = "user.registered"
	UserVerifiedSubject   = "user.verified"
	UserDeletedSubject    = "user.deleted"
)

// Publisher broadcasts account lifecycle events over NATS. Publishing is
// best-effort; the account usecase logs failures and never fails the
// triggering operation on them.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// UserEventPayload is the wire form of every user lifecycle event.
type UserEventPayload struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewPublisher(url string, connectTimeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(connectTimeout),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.String("subject", sub.Subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Successfully connected to NATS", zap.String("url", nc.ConnectedUrl()))

	return &Publisher{nc: nc, logger: logger.Named("EventPublisher")}, nil
}

func (p *Publisher) PublishUserRegistered(ctx context.Context, userID, email string) error {
	return p.publish(UserRegisteredSubject, userID, email)
}

func (p *Publisher) PublishUserVerified(ctx context.Context, userID, email string) error {
	return p.publish(UserVerifiedSubject, userID, email)
}

func (p *Publisher) PublishUserDeleted(ctx context.Context, userID, email string) error {
	return p.publish(UserDeletedSubject, userID, email)
}

func (p *Publisher) publish(subject, userID, email string) error {
	payload := UserEventPayload{
		UserID:     userID,
		Email:      email,
		OccurredAt: time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal event payload",
			zap.String("subject", subject), zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish NATS message",
			zap.String("subject", subject), zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Info("Published NATS message", zap.String("subject", subject), zap.String("user_id", userID))
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("Error draining NATS connection", zap.Error(err))
		}
		p.nc.Close()
		p.logger.Info("NATS publisher connection closed")
	}
}
