package port

import (
	"context"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// Notifier delivers one-time codes to the account holder out of band.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, displayName string, purpose domain.VerificationPurpose, code string) error
}
