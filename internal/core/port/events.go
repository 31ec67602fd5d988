package port

import (
	"context"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// EventPublisher publishes authentication lifecycle events to the message bus.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishDeviceTrusted(ctx context.Context, event domain.DeviceTrustedEvent) error
	PublishTwoFAEnabled(ctx context.Context, event domain.TwoFAEnabledEvent) error
	PublishTwoFADisabled(ctx context.Context, event domain.TwoFADisabledEvent) error
}
