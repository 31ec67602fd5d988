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

// Post-login landing paths embedded in the access token.
const (
	RedirectDashboard    = "/dashboard"
	RedirectProfileSetup = "/profile/setup"
)

// Login method labels recorded on success events.
const (
	methodPassword      = "password"
	methodTrustedDevice = "password+trusted_device"
	methodTOTP          = "password+totp"
	methodBackupCode    = "password+backup_code"
	methodEmailCode     = "password+email_code"
	methodRegistration  = "registration"
)

// CanFinishLogin reports whether the account may proceed past password
// verification: it must be active and its email verified. Every login
// path checks this, including challenge resolution.
func CanFinishLogin(account *domain.Account) error {
	if account.Status != domain.AccountStatusActive {
		return ErrInactiveAccount
	}
	if !account.EmailVerified {
		return ErrEmailUnverified
	}
	return nil
}

// LoginConfig tunes the login flow.
type LoginConfig struct {
	ChallengeTTL time.Duration
}

// ChallengeInfo is handed to the client when a second factor is required.
// Only the opaque ID crosses the wire; all state stays server side.
type ChallengeInfo struct {
	ID        string
	Methods   []domain.ChallengeMethod
	ExpiresAt time.Time
}

// LoginResult is the outcome of a login or challenge resolution. Exactly
// one of Token or Challenge is set.
type LoginResult struct {
	Token     string
	Redirect  string
	Account   *domain.Account
	Challenge *ChallengeInfo
}

// ResolveInput carries a single challenge resolution attempt.
type ResolveInput struct {
	ChallengeID string
	Method      domain.ChallengeMethod
	Code        string
	TrustDevice bool
}

// LoginService orchestrates password authentication, second-factor
// challenges, and token issuance.
type LoginService struct {
	credentials *CredentialService
	accounts    port.AccountRepository
	challenges  port.ChallengeStore
	deviceTrust *DeviceTrustService
	backupCodes *BackupCodeService
	otp         *OTPService
	totp        *security.TOTPEngine
	tokens      *security.TokenIssuer
	events      port.EventPublisher
	logger      *zap.Logger
	cfg         LoginConfig
	now         func() time.Time
}

// NewLoginService constructs a login service.
func NewLoginService(
	credentials *CredentialService,
	accounts port.AccountRepository,
	challenges port.ChallengeStore,
	deviceTrust *DeviceTrustService,
	backupCodes *BackupCodeService,
	otp *OTPService,
	totp *security.TOTPEngine,
	tokens *security.TokenIssuer,
	events port.EventPublisher,
	logger *zap.Logger,
	cfg LoginConfig,
) *LoginService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	return &LoginService{
		credentials: credentials,
		accounts:    accounts,
		challenges:  challenges,
		deviceTrust: deviceTrust,
		backupCodes: backupCodes,
		otp:         otp,
		totp:        totp,
		tokens:      tokens,
		events:      events,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *LoginService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Login checks the password and either finalizes immediately or opens a
// second-factor challenge. Accounts without 2FA and trusted devices skip
// the challenge.
func (s *LoginService) Login(ctx context.Context, email, password string, remember bool, device domain.DeviceContext) (*LoginResult, error) {
	account, err := s.credentials.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := CanFinishLogin(account); err != nil {
		return nil, err
	}

	if !account.TwoFAEnabled {
		return s.finalize(ctx, account, methodPassword, false, device)
	}

	trusted, err := s.deviceTrust.IsTrusted(ctx, account, device)
	if err != nil {
		return nil, err
	}
	if trusted {
		return s.finalize(ctx, account, methodTrustedDevice, true, device)
	}

	id, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate challenge id: %w", err)
	}

	now := s.now().UTC()
	challenge := domain.PendingChallenge{
		ID:        id,
		AccountID: account.ID,
		Remember:  remember,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ChallengeTTL),
	}

	if err := s.challenges.Put(ctx, challenge, s.cfg.ChallengeTTL); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	return &LoginResult{
		Challenge: &ChallengeInfo{
			ID:        id,
			Methods:   []domain.ChallengeMethod{domain.ChallengeMethodTOTP, domain.ChallengeMethodBackup, domain.ChallengeMethodEmail},
			ExpiresAt: challenge.ExpiresAt,
		},
	}, nil
}

func (s *LoginService) loadChallenge(ctx context.Context, id string) (*domain.PendingChallenge, *domain.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, ErrChallengeNotFound
	}

	challenge, err := s.challenges.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrChallengeNotFound
		}
		return nil, nil, fmt.Errorf("load challenge: %w", err)
	}

	if challenge.Expired(s.now().UTC()) {
		if _, err := s.challenges.Delete(ctx, id); err != nil {
			s.logger.Warn("discard expired challenge failed", zap.Error(err))
		}
		return nil, nil, ErrChallengeNotFound
	}

	account, err := s.accounts.GetByID(ctx, challenge.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrChallengeNotFound
		}
		return nil, nil, fmt.Errorf("load account: %w", err)
	}

	if err := CanFinishLogin(account); err != nil {
		return nil, nil, err
	}

	return challenge, account, nil
}

// RequestEmailCode emails a login code for an open challenge, superseding
// any earlier login code for the account.
func (s *LoginService) RequestEmailCode(ctx context.Context, challengeID string) error {
	_, account, err := s.loadChallenge(ctx, challengeID)
	if err != nil {
		return err
	}

	if _, err := s.otp.Issue(ctx, domain.PurposeLogin, account.Email, account.FirstName); err != nil {
		return fmt.Errorf("issue login code: %w", err)
	}

	return nil
}

// ResolveChallenge verifies the presented factor and finalizes the login.
// A failed factor leaves the challenge open for another attempt; the
// challenge itself is claimed only after the factor checks out, and
// exactly one concurrent resolution can claim it.
func (s *LoginService) ResolveChallenge(ctx context.Context, input ResolveInput) (*LoginResult, error) {
	challenge, account, err := s.loadChallenge(ctx, input.ChallengeID)
	if err != nil {
		return nil, err
	}

	if !account.TwoFAEnabled && input.Method != domain.ChallengeMethodEmail {
		return nil, ErrSecondFactorInvalid
	}

	code := strings.TrimSpace(input.Code)
	var method string

	switch input.Method {
	case domain.ChallengeMethodTOTP:
		ok, err := s.totp.Validate(code, account.TwoFASecret, s.now().UTC())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrSecondFactorInvalid
		}
		method = methodTOTP

	case domain.ChallengeMethodBackup:
		consumed, err := s.backupCodes.Consume(ctx, account.ID, code)
		if err != nil {
			return nil, err
		}
		if !consumed {
			return nil, ErrSecondFactorInvalid
		}
		method = methodBackupCode

	case domain.ChallengeMethodEmail:
		if err := s.otp.Verify(ctx, domain.PurposeLogin, account.Email, code); err != nil {
			if errors.Is(err, ErrVerificationCodeInvalid) {
				return nil, ErrSecondFactorInvalid
			}
			return nil, err
		}
		method = methodEmailCode

	default:
		return nil, fmt.Errorf("unknown challenge method %q", input.Method)
	}

	claimed, err := s.challenges.Delete(ctx, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("claim challenge: %w", err)
	}
	if !claimed {
		return nil, ErrChallengeNotFound
	}

	// Remember at the password step carries through the challenge as the
	// default trust decision.
	deviceTrusted := false
	if (input.TrustDevice || challenge.Remember) && challenge.Device.UserAgent != "" {
		if _, err := s.deviceTrust.Trust(ctx, account, challenge.Device); err != nil {
			s.logger.Warn("trust device failed", zap.Error(err))
		} else {
			deviceTrusted = true
		}
	}

	return s.finalize(ctx, account, method, deviceTrusted, challenge.Device)
}

// FinalizeVerified completes login for an account that just confirmed its
// email during registration. The password was already checked when the
// signup was staged, so no second password prompt happens.
func (s *LoginService) FinalizeVerified(ctx context.Context, account *domain.Account, device domain.DeviceContext) (*LoginResult, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if err := CanFinishLogin(account); err != nil {
		return nil, err
	}
	return s.finalize(ctx, account, methodRegistration, false, device)
}

func (s *LoginService) finalize(ctx context.Context, account *domain.Account, method string, deviceTrusted bool, device domain.DeviceContext) (*LoginResult, error) {
	now := s.now().UTC()

	redirect := RedirectProfileSetup
	if account.ProfileCompleted {
		redirect = RedirectDashboard
	}

	token, err := s.tokens.Issue(account.ID, redirect, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("update last login failed", zap.Error(err))
	}
	lastLogin := now
	account.LastLogin = &lastLogin

	if s.events != nil {
		event := domain.LoginSucceededEvent{
			EventID:       uuid.NewString(),
			AccountID:     account.ID,
			Method:        method,
			DeviceTrusted: deviceTrusted,
			OccurredAt:    now,
		}
		if device.IP != "" {
			ip := device.IP
			event.IP = &ip
		}
		if err := s.events.PublishLoginSucceeded(ctx, event); err != nil {
			s.logger.Warn("publish login succeeded event failed", zap.Error(err))
		}
	}

	return &LoginResult{
		Token:    token,
		Redirect: redirect,
		Account:  account,
	}, nil
}
