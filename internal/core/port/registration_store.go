package port

import (
	"context"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// RegistrationStore stages signup payloads keyed by email until the
// address is verified. A re-registration for the same email overwrites
// the staged entry.
type RegistrationStore interface {
	Put(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}
