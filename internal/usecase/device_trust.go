package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
	"github.com/Imagineer253/compass-shipment-tracker/internal/repository"
)

// DeviceTrustConfig governs trusted-device grants.
type DeviceTrustConfig struct {
	TTL        time.Duration
	MaxDevices int
}

// DeviceTrustService manages the registry of devices exempt from
// second-factor challenges.
type DeviceTrustService struct {
	devices  port.DeviceRepository
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
	cfg      DeviceTrustConfig
	now      func() time.Time
}

// NewDeviceTrustService constructs a device trust service.
func NewDeviceTrustService(
	devices port.DeviceRepository,
	accounts port.AccountRepository,
	events port.EventPublisher,
	logger *zap.Logger,
	cfg DeviceTrustConfig,
) *DeviceTrustService {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceTrustService{
		devices:  devices,
		accounts: accounts,
		events:   events,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *DeviceTrustService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// fingerprintSalt returns the account's fingerprint salt, establishing one
// on first use. The repository only writes an empty slot, so concurrent
// first grants converge on whichever salt landed first.
func (s *DeviceTrustService) fingerprintSalt(ctx context.Context, account *domain.Account) (string, error) {
	if account.DeviceSalt != "" {
		return account.DeviceSalt, nil
	}

	salt, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate device salt: %w", err)
	}

	if err := s.accounts.SetDeviceSalt(ctx, account.ID, salt); err != nil {
		return "", fmt.Errorf("store device salt: %w", err)
	}

	stored, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return "", fmt.Errorf("reload account: %w", err)
	}
	account.DeviceSalt = stored.DeviceSalt

	return stored.DeviceSalt, nil
}

// IsTrusted reports whether the client described by the device context
// holds a live trust grant, refreshing its last-used time when it does.
func (s *DeviceTrustService) IsTrusted(ctx context.Context, account *domain.Account, device domain.DeviceContext) (bool, error) {
	if account.DeviceSalt == "" || device.UserAgent == "" {
		return false, nil
	}

	fingerprint := security.DeviceFingerprint(account.DeviceSalt, device.UserAgent)
	grant, err := s.devices.GetByFingerprint(ctx, account.ID, fingerprint)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup device: %w", err)
	}

	now := s.now().UTC()
	if !grant.Active(now) {
		return false, nil
	}

	if err := s.devices.Touch(ctx, grant.ID, now); err != nil {
		s.logger.Warn("touch trusted device failed", zap.Error(err))
	}

	return true, nil
}

// Trust grants the device an exemption from second-factor challenges.
// When the account is at its device cap, the least recently used grant is
// evicted to make room.
func (s *DeviceTrustService) Trust(ctx context.Context, account *domain.Account, device domain.DeviceContext) (*domain.TrustedDevice, error) {
	if device.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required to trust a device")
	}

	salt, err := s.fingerprintSalt(ctx, account)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	fingerprint := security.DeviceFingerprint(salt, device.UserAgent)

	// Re-trusting a known device refreshes it in place and never needs an
	// eviction, so check for the existing grant before counting.
	existing, err := s.devices.GetByFingerprint(ctx, account.ID, fingerprint)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup device: %w", err)
	}

	if existing == nil {
		count, err := s.devices.CountActive(ctx, account.ID, now)
		if err != nil {
			return nil, fmt.Errorf("count devices: %w", err)
		}
		if count >= s.cfg.MaxDevices {
			oldest, err := s.devices.OldestActive(ctx, account.ID, now)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("find eviction candidate: %w", err)
			}
			if oldest != nil {
				if err := s.devices.Revoke(ctx, account.ID, oldest.ID); err != nil {
					return nil, fmt.Errorf("evict device: %w", err)
				}
				s.logger.Info("evicted least recently used trusted device",
					zap.String("account_id", account.ID),
					zap.String("device_id", oldest.ID),
				)
			}
		}
	}

	grant := &domain.TrustedDevice{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Fingerprint: fingerprint,
		Name:        security.DeviceName(device.UserAgent),
		UserAgent:   device.UserAgent,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.Add(s.cfg.TTL),
	}
	if device.IP != "" {
		ip := device.IP
		grant.IP = &ip
	}

	if err := s.devices.Upsert(ctx, grant); err != nil {
		return nil, fmt.Errorf("store device: %w", err)
	}

	if s.events != nil {
		event := domain.DeviceTrustedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			DeviceID:   grant.ID,
			DeviceName: grant.Name,
			ExpiresAt:  grant.ExpiresAt,
			TrustedAt:  now,
		}
		if err := s.events.PublishDeviceTrusted(ctx, event); err != nil {
			s.logger.Warn("publish device trusted event failed", zap.Error(err))
		}
	}

	return grant, nil
}

// List returns the account's active trust grants.
func (s *DeviceTrustService) List(ctx context.Context, accountID string) ([]domain.TrustedDevice, error) {
	devices, err := s.devices.ListActive(ctx, accountID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// Revoke withdraws a single grant.
func (s *DeviceTrustService) Revoke(ctx context.Context, accountID, deviceID string) error {
	if err := s.devices.Revoke(ctx, accountID, deviceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("revoke device: %w", err)
	}
	return nil
}

// RevokeAll withdraws every grant for the account.
func (s *DeviceTrustService) RevokeAll(ctx context.Context, accountID string) error {
	if err := s.devices.RevokeAll(ctx, accountID); err != nil {
		return fmt.Errorf("revoke all devices: %w", err)
	}
	return nil
}

// Sweep purges expired grants. Called periodically by the application.
func (s *DeviceTrustService) Sweep(ctx context.Context) (int64, error) {
	purged, err := s.devices.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep devices: %w", err)
	}
	if purged > 0 {
		s.logger.Info("purged expired trusted devices", zap.Int64("count", purged))
	}
	return purged, nil
}
