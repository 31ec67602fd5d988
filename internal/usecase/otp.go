package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
)

// OTPConfig tunes emailed one-time codes.
type OTPConfig struct {
	Length          int
	RegistrationTTL time.Duration
	LoginTTL        time.Duration
	MaxAttempts     int
}

// OTPService issues and verifies emailed one-time codes. At most one code
// is outstanding per (purpose, subject): issuing supersedes the previous
// code, and a consumed or exhausted code must be reissued before retrying.
type OTPService struct {
	store    port.OTPStore
	notifier port.Notifier
	cfg      OTPConfig
	now      func() time.Time
}

// NewOTPService constructs an OTP service.
func NewOTPService(store port.OTPStore, notifier port.Notifier, cfg OTPConfig) *OTPService {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.RegistrationTTL <= 0 {
		cfg.RegistrationTTL = 10 * time.Minute
	}
	if cfg.LoginTTL <= 0 {
		cfg.LoginTTL = 15 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OTPService{store: store, notifier: notifier, cfg: cfg, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (s *OTPService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *OTPService) ttl(purpose domain.VerificationPurpose) time.Duration {
	if purpose == domain.PurposeLogin {
		return s.cfg.LoginTTL
	}
	return s.cfg.RegistrationTTL
}

// Issue generates a fresh code for the subject, stores it, and hands it to
// the notifier for delivery.
func (s *OTPService) Issue(ctx context.Context, purpose domain.VerificationPurpose, email, displayName string) (domain.VerificationCode, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.VerificationCode{}, fmt.Errorf("email is required")
	}

	raw, err := security.GenerateNumericCode(s.cfg.Length)
	if err != nil {
		return domain.VerificationCode{}, fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	ttl := s.ttl(purpose)
	code := domain.VerificationCode{
		Purpose:   purpose,
		Subject:   email,
		Code:      raw,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.store.Put(ctx, code, ttl); err != nil {
		return domain.VerificationCode{}, fmt.Errorf("store code: %w", err)
	}

	if err := s.notifier.SendVerificationCode(ctx, email, displayName, purpose, raw); err != nil {
		return domain.VerificationCode{}, fmt.Errorf("deliver code: %w", err)
	}

	return code, nil
}

// Verify checks the candidate against the outstanding code for the subject.
// The store counts the attempt and consumes the record atomically, so a
// code that verified once can never verify again.
func (s *OTPService) Verify(ctx context.Context, purpose domain.VerificationPurpose, email, candidate string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	candidate = strings.TrimSpace(candidate)
	if email == "" || candidate == "" {
		return ErrVerificationCodeInvalid
	}

	result, err := s.store.Verify(ctx, purpose, email, candidate, s.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("verify code: %w", err)
	}

	switch result {
	case port.OTPMatch:
		return nil
	case port.OTPMismatch, port.OTPNotFound:
		return ErrVerificationCodeInvalid
	case port.OTPExpired:
		return ErrVerificationCodeExpired
	case port.OTPAttemptsExhausted:
		return ErrVerificationAttemptsExceeded
	default:
		return fmt.Errorf("unexpected verify result %d", result)
	}
}

// Invalidate discards any outstanding code for the subject.
func (s *OTPService) Invalidate(ctx context.Context, purpose domain.VerificationPurpose, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if err := s.store.Delete(ctx, purpose, email); err != nil {
		return fmt.Errorf("invalidate code: %w", err)
	}
	return nil
}
