package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
	"github.com/Imagineer253/compass-shipment-tracker/internal/repository"
)

// TwoFactorService manages authenticator enrollment, backup codes, and
// teardown of the second factor.
type TwoFactorService struct {
	accounts    port.AccountRepository
	credentials *CredentialService
	backupCodes *BackupCodeService
	deviceTrust *DeviceTrustService
	totp        *security.TOTPEngine
	events      port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewTwoFactorService constructs a two-factor service.
func NewTwoFactorService(
	accounts port.AccountRepository,
	credentials *CredentialService,
	backupCodes *BackupCodeService,
	deviceTrust *DeviceTrustService,
	totp *security.TOTPEngine,
	events port.EventPublisher,
	logger *zap.Logger,
) *TwoFactorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwoFactorService{
		accounts:    accounts,
		credentials: credentials,
		backupCodes: backupCodes,
		deviceTrust: deviceTrust,
		totp:        totp,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *TwoFactorService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *TwoFactorService) account(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// Setup provisions a fresh authenticator secret. The secret is stored but
// 2FA stays off until Enable confirms the authenticator produces valid
// codes. Re-running setup replaces an unconfirmed secret.
func (s *TwoFactorService) Setup(ctx context.Context, accountID string) (*security.TOTPProvisioning, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFAEnabled {
		return nil, ErrTwoFAAlreadyEnabled
	}

	provisioning, err := s.totp.Provision(account.Email)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.SetTwoFA(ctx, account.ID, false, provisioning.Secret); err != nil {
		return nil, fmt.Errorf("store totp secret: %w", err)
	}

	return provisioning, nil
}

// Enable confirms the authenticator with a live code, turns 2FA on, and
// issues the backup code batch. The plaintext codes appear only in this
// response.
func (s *TwoFactorService) Enable(ctx context.Context, accountID, code string) ([]string, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFAEnabled {
		return nil, ErrTwoFAAlreadyEnabled
	}
	if account.TwoFASecret == "" {
		return nil, ErrTwoFASetupMissing
	}

	ok, err := s.totp.Validate(strings.TrimSpace(code), account.TwoFASecret, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSecondFactorInvalid
	}

	if err := s.accounts.SetTwoFA(ctx, account.ID, true, account.TwoFASecret); err != nil {
		return nil, fmt.Errorf("enable twofa: %w", err)
	}

	codes, err := s.backupCodes.Generate(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		event := domain.TwoFAEnabledEvent{
			EventID:     uuid.NewString(),
			AccountID:   account.ID,
			BackupCodes: len(codes),
			EnabledAt:   s.now().UTC(),
		}
		if err := s.events.PublishTwoFAEnabled(ctx, event); err != nil {
			s.logger.Warn("publish twofa enabled event failed", zap.Error(err))
		}
	}

	return codes, nil
}

// Disable tears the second factor down after re-confirming the password
// and a live factor. Backup codes and trusted devices are withdrawn with
// it so the account returns to a clean single-factor state.
func (s *TwoFactorService) Disable(ctx context.Context, accountID, password, code string) error {
	account, err := s.credentials.VerifyByID(ctx, accountID, password)
	if err != nil {
		return err
	}
	if !account.TwoFAEnabled {
		return ErrTwoFANotEnabled
	}

	code = strings.TrimSpace(code)
	ok, err := s.totp.Validate(code, account.TwoFASecret, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		// Fall back to a backup code so a lost authenticator can still be
		// unenrolled.
		consumed, err := s.backupCodes.Consume(ctx, account.ID, code)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrSecondFactorInvalid
		}
	}

	if err := s.accounts.SetTwoFA(ctx, account.ID, false, ""); err != nil {
		return fmt.Errorf("disable twofa: %w", err)
	}

	if err := s.backupCodes.Clear(ctx, account.ID); err != nil {
		return err
	}

	if err := s.deviceTrust.RevokeAll(ctx, account.ID); err != nil {
		return err
	}

	if s.events != nil {
		event := domain.TwoFADisabledEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			DisabledAt: s.now().UTC(),
		}
		if err := s.events.PublishTwoFADisabled(ctx, event); err != nil {
			s.logger.Warn("publish twofa disabled event failed", zap.Error(err))
		}
	}

	return nil
}

// RegenerateBackupCodes discards the remaining batch and issues a new one
// after re-confirming the password.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, accountID, password string) ([]string, error) {
	account, err := s.credentials.VerifyByID(ctx, accountID, password)
	if err != nil {
		return nil, err
	}
	if !account.TwoFAEnabled {
		return nil, ErrTwoFANotEnabled
	}

	return s.backupCodes.Generate(ctx, account.ID)
}

// TwoFactorStatus summarizes the account's second-factor posture.
type TwoFactorStatus struct {
	Enabled         bool
	BackupCodesLeft int
	TrustedDevices  int
	SetupInProgress bool
}

// Status reports whether 2FA is on and how many recovery codes and
// trusted devices remain.
func (s *TwoFactorService) Status(ctx context.Context, accountID string) (*TwoFactorStatus, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	status := &TwoFactorStatus{
		Enabled:         account.TwoFAEnabled,
		SetupInProgress: !account.TwoFAEnabled && account.TwoFASecret != "",
	}

	if account.TwoFAEnabled {
		remaining, err := s.backupCodes.Remaining(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		status.BackupCodesLeft = remaining

		devices, err := s.deviceTrust.List(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		status.TrustedDevices = len(devices)
	}

	return status, nil
}
