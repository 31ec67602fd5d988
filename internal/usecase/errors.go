package usecase

import "errors"

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is locked or disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrEmailUnverified indicates the account email has not been confirmed.
	ErrEmailUnverified = errors.New("email not verified")
	// ErrEmailTaken indicates a verified account already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrRegistrationNotFound indicates no signup is staged for the email.
	ErrRegistrationNotFound = errors.New("no pending registration for email")
	// ErrVerificationCodeInvalid indicates the provided code does not match.
	ErrVerificationCodeInvalid = errors.New("verification code invalid")
	// ErrVerificationCodeExpired indicates the code exists but its TTL elapsed.
	ErrVerificationCodeExpired = errors.New("verification code expired")
	// ErrVerificationAttemptsExceeded indicates the failure budget was spent
	// and a fresh code must be requested.
	ErrVerificationAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrChallengeNotFound indicates the challenge ID is unknown, expired, or already resolved.
	ErrChallengeNotFound = errors.New("challenge not found or expired")
	// ErrSecondFactorInvalid indicates the presented TOTP, backup, or email code was rejected.
	ErrSecondFactorInvalid = errors.New("second factor code invalid")
	// ErrTwoFANotEnabled indicates the operation requires 2FA to be active on the account.
	ErrTwoFANotEnabled = errors.New("two-factor authentication not enabled")
	// ErrTwoFAAlreadyEnabled indicates 2FA setup was attempted while already active.
	ErrTwoFAAlreadyEnabled = errors.New("two-factor authentication already enabled")
	// ErrTwoFASetupMissing indicates enable was called before setup provisioned a secret.
	ErrTwoFASetupMissing = errors.New("two-factor setup not started")
	// ErrDeviceNotFound indicates the trusted device does not exist for the account.
	ErrDeviceNotFound = errors.New("trusted device not found")
	// ErrAccountNotFound indicates no account exists for the given identifier.
	ErrAccountNotFound = errors.New("account not found")
)
