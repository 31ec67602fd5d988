package port

import (
	"context"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// AccountRepository defines persistence operations for verified accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash, passwordAlgo string) error
	// SetTwoFA stores the shared secret and toggles the enabled flag in one
	// statement. Disabling passes an empty secret.
	SetTwoFA(ctx context.Context, id string, enabled bool, secret string) error
	// SetDeviceSalt persists the per-account fingerprint salt. It only writes
	// when the stored salt is empty so concurrent first grants cannot race.
	SetDeviceSalt(ctx context.Context, id, salt string) error
	SetProfileCompleted(ctx context.Context, id string, completed bool) error
}
