package port

import (
	"context"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// DeviceRepository defines persistence operations for trusted-device grants.
type DeviceRepository interface {
	// Upsert inserts the device or, when the (account, fingerprint) pair
	// already exists, refreshes its expiry, metadata, and last-used time.
	Upsert(ctx context.Context, device *domain.TrustedDevice) error
	GetByFingerprint(ctx context.Context, accountID, fingerprint string) (*domain.TrustedDevice, error)
	Touch(ctx context.Context, id string, at time.Time) error
	ListActive(ctx context.Context, accountID string, now time.Time) ([]domain.TrustedDevice, error)
	CountActive(ctx context.Context, accountID string, now time.Time) (int, error)
	// OldestActive returns the active device with the earliest last-used
	// time. It backs the eviction pass when an account is at its device cap.
	OldestActive(ctx context.Context, accountID string, now time.Time) (*domain.TrustedDevice, error)
	Revoke(ctx context.Context, accountID, deviceID string) error
	RevokeAll(ctx context.Context, accountID string) error
	// DeleteExpired removes grants past their expiry and returns how many
	// rows were purged.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
