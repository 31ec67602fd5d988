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

// RegistrationConfig tunes signup staging.
type RegistrationConfig struct {
	PendingTTL time.Duration
}

// RegistrationService handles new account onboarding. Signups are staged
// until the email address is verified; only verification materializes an
// account row.
type RegistrationService struct {
	accounts          port.AccountRepository
	pending           port.RegistrationStore
	otp               *OTPService
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	cfg               RegistrationConfig
	now               func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	accounts port.AccountRepository,
	pending port.RegistrationStore,
	otp *OTPService,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	logger *zap.Logger,
	cfg RegistrationConfig,
) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 24 * time.Hour
	}
	return &RegistrationService{
		accounts:          accounts,
		pending:           pending,
		otp:               otp,
		events:            events,
		passwordValidator: validator,
		logger:            logger,
		cfg:               cfg,
		now:               time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RegisterInput carries the signup form fields.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	Organization string
}

// Register stages the signup and emails a verification code. Registering
// again for the same email replaces the staged payload and supersedes the
// earlier code.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) error {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return fmt.Errorf("first name is required")
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup account: %w", err)
	}

	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	reg := domain.PendingRegistration{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Organization: strings.TrimSpace(input.Organization),
		CreatedAt:    now,
	}

	if err := s.pending.Put(ctx, reg, s.cfg.PendingTTL); err != nil {
		return fmt.Errorf("stage registration: %w", err)
	}

	if _, err := s.otp.Issue(ctx, domain.PurposeRegistration, email, reg.FirstName); err != nil {
		return fmt.Errorf("issue verification code: %w", err)
	}

	if s.events != nil {
		event := domain.AccountRegisteredEvent{
			EventID:      uuid.NewString(),
			Email:        email,
			Organization: reg.Organization,
			StagedAt:     now,
		}
		if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
			s.logger.Warn("publish account registered event failed", zap.Error(err))
		}
	}

	return nil
}

// VerifyEmail confirms the code and materializes the staged signup into an
// account. The code is consumed atomically on match, so two concurrent
// verifications cannot both succeed.
func (s *RegistrationService) VerifyEmail(ctx context.Context, email, code string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.otp.Verify(ctx, domain.PurposeRegistration, email, code); err != nil {
		return nil, err
	}

	reg, err := s.pending.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("load staged registration: %w", err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		ID:            uuid.NewString(),
		Email:         reg.Email,
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		Organization:  reg.Organization,
		PasswordHash:  reg.PasswordHash,
		PasswordAlgo:  "argon2id",
		Status:        domain.AccountStatusActive,
		EmailVerified: true,
		RegisteredAt:  now,
	}
	if reg.Phone != "" {
		phone := reg.Phone
		account.Phone = &phone
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.pending.Delete(ctx, email); err != nil {
		s.logger.Warn("discard staged registration failed", zap.Error(err))
	}

	if s.events != nil {
		event := domain.AccountVerifiedEvent{
			EventID:    uuid.NewString(),
			AccountID:  account.ID,
			Email:      account.Email,
			VerifiedAt: now,
		}
		if err := s.events.PublishAccountVerified(ctx, event); err != nil {
			s.logger.Warn("publish account verified event failed", zap.Error(err))
		}
	}

	return account, nil
}

// ResendCode issues a fresh verification code for a staged signup,
// superseding the previous one.
func (s *RegistrationService) ResendCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	reg, err := s.pending.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("load staged registration: %w", err)
	}

	if _, err := s.otp.Issue(ctx, domain.PurposeRegistration, email, reg.FirstName); err != nil {
		return fmt.Errorf("issue verification code: %w", err)
	}

	return nil
}
