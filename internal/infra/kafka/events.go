package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes compass.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		Email        string         `json:"email"`
		Organization string         `json:"organization,omitempty"`
		StagedAt     time.Time      `json:"staged_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		Email:        event.Email,
		Organization: event.Organization,
		StagedAt:     event.StagedAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "compass.account.registered", "", event.StagedAt, payload)
}

// PublishAccountVerified publishes compass.account.verified events.
func (p *EventPublisher) PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Email      string         `json:"email"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Email:      event.Email,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "compass.account.verified", event.AccountID, event.VerifiedAt, payload)
}

// PublishLoginSucceeded publishes compass.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		AccountID     string         `json:"account_id"`
		Method        string         `json:"method"`
		DeviceTrusted bool           `json:"device_trusted"`
		IPAddress     *string        `json:"ip_address,omitempty"`
		OccurredAt    time.Time      `json:"occurred_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		Method:        event.Method,
		DeviceTrusted: event.DeviceTrusted,
		IPAddress:     event.IP,
		OccurredAt:    event.OccurredAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "compass.login.succeeded", event.AccountID, event.OccurredAt, payload)
}

// PublishDeviceTrusted publishes compass.device.trusted events.
func (p *EventPublisher) PublishDeviceTrusted(ctx context.Context, event domain.DeviceTrustedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		DeviceID   string         `json:"device_id"`
		DeviceName string         `json:"device_name"`
		ExpiresAt  time.Time      `json:"expires_at"`
		TrustedAt  time.Time      `json:"trusted_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		DeviceID:   event.DeviceID,
		DeviceName: event.DeviceName,
		ExpiresAt:  event.ExpiresAt.UTC(),
		TrustedAt:  event.TrustedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "compass.device.trusted", event.AccountID, event.TrustedAt, payload)
}

// PublishTwoFAEnabled publishes compass.twofa.enabled events.
func (p *EventPublisher) PublishTwoFAEnabled(ctx context.Context, event domain.TwoFAEnabledEvent) error {
	payload := struct {
		AccountID   string         `json:"account_id"`
		BackupCodes int            `json:"backup_codes"`
		EnabledAt   time.Time      `json:"enabled_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		BackupCodes: event.BackupCodes,
		EnabledAt:   event.EnabledAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "compass.twofa.enabled", event.AccountID, event.EnabledAt, payload)
}

// PublishTwoFADisabled publishes compass.twofa.disabled events.
func (p *EventPublisher) PublishTwoFADisabled(ctx context.Context, event domain.TwoFADisabledEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		DisabledAt time.Time      `json:"disabled_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		DisabledAt: event.DisabledAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "compass.twofa.disabled", event.AccountID, event.DisabledAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
