package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
)

type twoFactorFixture struct {
	service     *TwoFactorService
	deviceTrust *DeviceTrustService
	backupCodes *BackupCodeService
	accounts    *fakeAccountRepo
	events      *fakeEventPublisher
	now         time.Time
}

func newTwoFactorFixture(t *testing.T, accounts ...*domain.Account) *twoFactorFixture {
	t.Helper()

	f := &twoFactorFixture{
		accounts: newFakeAccountRepo(accounts...),
		events:   &fakeEventPublisher{},
		now:      time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	log := zaptest.NewLogger(t)

	f.backupCodes = NewBackupCodeService(newFakeBackupCodeRepo(), BackupCodeConfig{})

	f.deviceTrust = NewDeviceTrustService(newFakeDeviceRepo(), f.accounts, f.events, log, DeviceTrustConfig{})
	f.deviceTrust.WithClock(clock)

	f.service = NewTwoFactorService(
		f.accounts,
		NewCredentialService(f.accounts),
		f.backupCodes,
		f.deviceTrust,
		security.NewTOTPEngine("compass-test", 1),
		f.events,
		log,
	)
	f.service.WithClock(clock)

	return f
}

func (f *twoFactorFixture) enable(t *testing.T, accountID string) (secret string, backupCodes []string) {
	t.Helper()

	provisioning, err := f.service.Setup(context.Background(), accountID)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	codes, err := f.service.Enable(context.Background(), accountID, totpCode(t, provisioning.Secret, f.now))
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}

	return provisioning.Secret, codes
}

func TestSetupProvisionsSecretWithoutEnabling(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))

	provisioning, err := f.service.Setup(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if provisioning.Secret == "" || provisioning.URL == "" || provisioning.QRBase64 == "" {
		t.Fatal("expected complete provisioning material")
	}

	stored, err := f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if stored.TwoFAEnabled {
		t.Fatal("setup must not enable 2FA")
	}
	if stored.TwoFASecret != provisioning.Secret {
		t.Fatal("expected the provisioned secret to be stored")
	}

	status, err := f.service.Status(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !status.SetupInProgress || status.Enabled {
		t.Fatalf("expected setup in progress, got %+v", status)
	}
}

func TestSetupRejectedWhenAlreadyEnabled(t *testing.T) {
	f := newTwoFactorFixture(t, twoFactorAccount(t))

	if _, err := f.service.Setup(context.Background(), "acc-1"); !errors.Is(err, ErrTwoFAAlreadyEnabled) {
		t.Fatalf("expected ErrTwoFAAlreadyEnabled, got %v", err)
	}
}

func TestEnableTurnsTwoFAOnAndIssuesBackupCodes(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))

	_, codes := f.enable(t, "acc-1")

	if len(codes) != 10 {
		t.Fatalf("expected 10 backup codes, got %d", len(codes))
	}

	stored, err := f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if !stored.TwoFAEnabled {
		t.Fatal("expected 2FA to be enabled")
	}
	if len(f.events.enabled) != 1 {
		t.Fatalf("expected one enabled event, got %d", len(f.events.enabled))
	}
}

func TestEnableWithoutSetup(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))

	if _, err := f.service.Enable(context.Background(), "acc-1", "000000"); !errors.Is(err, ErrTwoFASetupMissing) {
		t.Fatalf("expected ErrTwoFASetupMissing, got %v", err)
	}
}

func TestEnableWrongCode(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))

	if _, err := f.service.Setup(context.Background(), "acc-1"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := f.service.Enable(context.Background(), "acc-1", "000000"); !errors.Is(err, ErrSecondFactorInvalid) {
		t.Fatalf("expected ErrSecondFactorInvalid, got %v", err)
	}

	stored, err := f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if stored.TwoFAEnabled {
		t.Fatal("a failed confirmation must not enable 2FA")
	}
}

func TestDisableWithAuthenticatorCode(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))
	secret, _ := f.enable(t, "acc-1")

	stored, err := f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if _, err := f.deviceTrust.Trust(context.Background(), stored, domain.DeviceContext{UserAgent: chromeUA}); err != nil {
		t.Fatalf("trust device: %v", err)
	}

	if err := f.service.Disable(context.Background(), "acc-1", strongPassword, totpCode(t, secret, f.now)); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	stored, err = f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if stored.TwoFAEnabled || stored.TwoFASecret != "" {
		t.Fatal("expected 2FA to be fully torn down")
	}

	remaining, err := f.backupCodes.Remaining(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("remaining failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected backup codes to be cleared, %d left", remaining)
	}

	devices, err := f.deviceTrust.List(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("list devices: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("expected trusted devices to be revoked, %d left", len(devices))
	}
	if len(f.events.disabled) != 1 {
		t.Fatalf("expected one disabled event, got %d", len(f.events.disabled))
	}
}

func TestDisableWithBackupCode(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))
	_, codes := f.enable(t, "acc-1")

	if err := f.service.Disable(context.Background(), "acc-1", strongPassword, codes[0]); err != nil {
		t.Fatalf("disable with backup code failed: %v", err)
	}

	stored, err := f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if stored.TwoFAEnabled {
		t.Fatal("expected 2FA to be disabled")
	}
}

func TestDisableWrongPassword(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))
	secret, _ := f.enable(t, "acc-1")

	if err := f.service.Disable(context.Background(), "acc-1", "wrong", totpCode(t, secret, f.now)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestDisableWrongFactor(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))
	f.enable(t, "acc-1")

	if err := f.service.Disable(context.Background(), "acc-1", strongPassword, "000000"); !errors.Is(err, ErrSecondFactorInvalid) {
		t.Fatalf("expected ErrSecondFactorInvalid, got %v", err)
	}
}

func TestDisableWhenNotEnabled(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))

	if err := f.service.Disable(context.Background(), "acc-1", strongPassword, "000000"); !errors.Is(err, ErrTwoFANotEnabled) {
		t.Fatalf("expected ErrTwoFANotEnabled, got %v", err)
	}
}

func TestRegenerateBackupCodesReplacesBatch(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))
	_, oldCodes := f.enable(t, "acc-1")

	newCodes, err := f.service.RegenerateBackupCodes(context.Background(), "acc-1", strongPassword)
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if len(newCodes) != 10 {
		t.Fatalf("expected 10 fresh codes, got %d", len(newCodes))
	}

	consumed, err := f.backupCodes.Consume(context.Background(), "acc-1", oldCodes[0])
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if consumed {
		t.Fatal("expected codes from the replaced batch to be rejected")
	}
}

func TestStatusReportsCountsWhenEnabled(t *testing.T) {
	f := newTwoFactorFixture(t, singleFactorAccount(t))
	f.enable(t, "acc-1")

	stored, err := f.accounts.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if _, err := f.deviceTrust.Trust(context.Background(), stored, domain.DeviceContext{UserAgent: chromeUA}); err != nil {
		t.Fatalf("trust device: %v", err)
	}

	status, err := f.service.Status(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !status.Enabled {
		t.Fatal("expected enabled status")
	}
	if status.BackupCodesLeft != 10 {
		t.Fatalf("expected 10 backup codes left, got %d", status.BackupCodesLeft)
	}
	if status.TrustedDevices != 1 {
		t.Fatalf("expected 1 trusted device, got %d", status.TrustedDevices)
	}
}

func TestStatusUnknownAccount(t *testing.T) {
	f := newTwoFactorFixture(t)

	if _, err := f.service.Status(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
