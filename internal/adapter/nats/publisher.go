package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/comas-edu/identity-service/internal/config"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	AccountLockedSubject = "identity.account.locked"
	AccountPurgedSubject = "identity.account.purged"
	PasswordResetSubject = "identity.account.password_reset"
)

// Publisher emits an audit event for every security-relevant account
// transition. Destructive transitions publish before the mutation runs.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

type accountLockedEvent struct {
	Email       string    `json:"email"`
	LockedUntil time.Time `json:"locked_until"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type accountEvent struct {
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewPublisher(cfg *config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
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

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Successfully connected to NATS", zap.String("url", nc.ConnectedUrl()))

	return &Publisher{nc: nc, logger: logger}, nil
}

func (p *Publisher) PublishAccountLocked(ctx context.Context, email string, until time.Time) error {
	return p.publish(AccountLockedSubject, accountLockedEvent{
		Email:       email,
		LockedUntil: until,
		OccurredAt:  time.Now(),
	})
}

func (p *Publisher) PublishAccountPurged(ctx context.Context, email string) error {
	return p.publish(AccountPurgedSubject, accountEvent{Email: email, OccurredAt: time.Now()})
}

func (p *Publisher) PublishPasswordReset(ctx context.Context, email string) error {
	return p.publish(PasswordResetSubject, accountEvent{Email: email, OccurredAt: time.Now()})
}

func (p *Publisher) publish(subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal audit event",
			zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to marshal event for %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish audit event",
			zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to publish NATS message for %s: %w", subject, err)
	}
	p.logger.Info("Published audit event", zap.String("subject", subject))
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
