package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs compass.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"email":        logger.MaskEmail(event.Email),
		"organization": event.Organization,
		"staged_at":    event.StagedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("compass.account.registered", "", event.StagedAt, payload)
	return nil
}

// PublishAccountVerified logs compass.account.verified events.
func (p *StubPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"email":       logger.MaskEmail(event.Email),
		"verified_at": event.VerifiedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("compass.account.verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

// PublishLoginSucceeded logs compass.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"account_id":     event.AccountID,
		"method":         event.Method,
		"device_trusted": event.DeviceTrusted,
		"ip_address":     event.IP,
		"occurred_at":    event.OccurredAt,
		"metadata":       event.Metadata,
	}
	p.logEvent("compass.login.succeeded", event.AccountID, event.OccurredAt, payload)
	return nil
}

// PublishDeviceTrusted logs compass.device.trusted events.
func (p *StubPublisher) PublishDeviceTrusted(_ context.Context, event domain.DeviceTrustedEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"device_id":   event.DeviceID,
		"device_name": event.DeviceName,
		"expires_at":  event.ExpiresAt,
		"trusted_at":  event.TrustedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("compass.device.trusted", event.AccountID, event.TrustedAt, payload)
	return nil
}

// PublishTwoFAEnabled logs compass.twofa.enabled events.
func (p *StubPublisher) PublishTwoFAEnabled(_ context.Context, event domain.TwoFAEnabledEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"backup_codes": event.BackupCodes,
		"enabled_at":   event.EnabledAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("compass.twofa.enabled", event.AccountID, event.EnabledAt, payload)
	return nil
}

// PublishTwoFADisabled logs compass.twofa.disabled events.
func (p *StubPublisher) PublishTwoFADisabled(_ context.Context, event domain.TwoFADisabledEvent) error {
	payload := map[string]any{
		"account_id":  event.AccountID,
		"disabled_at": event.DisabledAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("compass.twofa.disabled", event.AccountID, event.DisabledAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
