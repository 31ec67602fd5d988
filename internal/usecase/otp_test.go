package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

func newOTPFixture(cfg OTPConfig) (*OTPService, *fakeOTPStore, *fakeNotifier, *time.Time) {
	now := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := newFakeOTPStore(clock)
	notifier := &fakeNotifier{}
	service := NewOTPService(store, notifier, cfg)
	service.WithClock(clock)

	return service, store, notifier, &now
}

func TestOTPIssueDeliversCode(t *testing.T) {
	service, _, notifier, _ := newOTPFixture(OTPConfig{Length: 6})

	code, err := service.Issue(context.Background(), domain.PurposeRegistration, "User@Example.com", "Ada")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if code.Subject != "user@example.com" {
		t.Fatalf("expected lowercased subject, got %q", code.Subject)
	}
	if len(code.Code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code.Code)
	}
	if got := notifier.lastCode(t); got != code.Code {
		t.Fatalf("delivered code %q does not match stored %q", got, code.Code)
	}
}

func TestOTPVerifyConsumesOnMatch(t *testing.T) {
	service, _, notifier, _ := newOTPFixture(OTPConfig{})

	if _, err := service.Issue(context.Background(), domain.PurposeRegistration, "user@example.com", ""); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", code); err != nil {
		t.Fatalf("expected match, got %v", err)
	}

	// The record was consumed; the same code never verifies twice.
	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", code); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid on replay, got %v", err)
	}
}

func TestOTPVerifyMismatchLeavesCodeUsable(t *testing.T) {
	service, _, notifier, _ := newOTPFixture(OTPConfig{MaxAttempts: 5})

	if _, err := service.Issue(context.Background(), domain.PurposeLogin, "user@example.com", ""); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	if err := service.Verify(context.Background(), domain.PurposeLogin, "user@example.com", "000000"); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid, got %v", err)
	}
	if err := service.Verify(context.Background(), domain.PurposeLogin, "user@example.com", code); err != nil {
		t.Fatalf("expected match after one mismatch, got %v", err)
	}
}

func TestOTPVerifyExhaustsAttemptBudget(t *testing.T) {
	service, _, notifier, _ := newOTPFixture(OTPConfig{MaxAttempts: 2})

	if _, err := service.Issue(context.Background(), domain.PurposeRegistration, "user@example.com", ""); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "000000"); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid, got %v", err)
	}
	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "111111"); !errors.Is(err, ErrVerificationAttemptsExceeded) {
		t.Fatalf("expected ErrVerificationAttemptsExceeded, got %v", err)
	}

	// Exhaustion consumed the record; even the right code is now rejected.
	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", code); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid after exhaustion, got %v", err)
	}
}

func TestOTPVerifyExpiredCode(t *testing.T) {
	service, _, notifier, now := newOTPFixture(OTPConfig{RegistrationTTL: 10 * time.Minute})

	if _, err := service.Issue(context.Background(), domain.PurposeRegistration, "user@example.com", ""); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	*now = now.Add(11 * time.Minute)

	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", code); !errors.Is(err, ErrVerificationCodeExpired) {
		t.Fatalf("expected ErrVerificationCodeExpired, got %v", err)
	}
}

func TestOTPIssueSupersedesOutstandingCode(t *testing.T) {
	service, _, notifier, _ := newOTPFixture(OTPConfig{})

	if _, err := service.Issue(context.Background(), domain.PurposeRegistration, "user@example.com", ""); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	first := notifier.lastCode(t)

	if _, err := service.Issue(context.Background(), domain.PurposeRegistration, "user@example.com", ""); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	second := notifier.lastCode(t)

	if first == second {
		t.Skip("codes collided, cannot distinguish supersession")
	}

	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", first); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected superseded code to be rejected, got %v", err)
	}
	if err := service.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", second); err != nil {
		t.Fatalf("expected latest code to verify, got %v", err)
	}
}

func TestOTPPurposesAreIsolated(t *testing.T) {
	service, _, notifier, _ := newOTPFixture(OTPConfig{})

	if _, err := service.Issue(context.Background(), domain.PurposeRegistration, "user@example.com", ""); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := notifier.lastCode(t)

	if err := service.Verify(context.Background(), domain.PurposeLogin, "user@example.com", code); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected registration code to be invalid for login purpose, got %v", err)
	}
}
