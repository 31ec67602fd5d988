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

const strongPassword = "X7#pQw9$Lz2m"

type registrationFixture struct {
	service  *RegistrationService
	accounts *fakeAccountRepo
	pending  *fakeRegistrationStore
	notifier *fakeNotifier
	events   *fakeEventPublisher
	now      time.Time
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()

	f := &registrationFixture{
		accounts: newFakeAccountRepo(),
		pending:  newFakeRegistrationStore(),
		notifier: &fakeNotifier{},
		events:   &fakeEventPublisher{},
		now:      time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	otp := NewOTPService(newFakeOTPStore(clock), f.notifier, OTPConfig{})
	otp.WithClock(clock)

	f.service = NewRegistrationService(
		f.accounts,
		f.pending,
		otp,
		f.events,
		security.DefaultPasswordValidator(),
		zaptest.NewLogger(t),
		RegistrationConfig{PendingTTL: 24 * time.Hour},
	)
	f.service.WithClock(clock)

	return f
}

func validSignup() RegisterInput {
	return RegisterInput{
		Email:        "Ada@Example.com",
		Password:     strongPassword,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Phone:        "+1 555 0100",
		Organization: "Analytical Engines Ltd",
	}
}

func TestRegisterStagesSignupAndSendsCode(t *testing.T) {
	f := newRegistrationFixture(t)

	if err := f.service.Register(context.Background(), validSignup()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	staged, ok := f.pending.staged["ada@example.com"]
	if !ok {
		t.Fatal("expected a staged registration for the lowercased email")
	}
	if staged.PasswordHash == strongPassword || staged.PasswordHash == "" {
		t.Fatal("expected the staged password to be hashed")
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one delivered code, got %d", len(f.notifier.sent))
	}
	if f.notifier.sent[0].purpose != domain.PurposeRegistration {
		t.Fatalf("unexpected purpose %q", f.notifier.sent[0].purpose)
	}

	if len(f.accounts.accounts) != 0 {
		t.Fatal("no account may exist before email verification")
	}
	if len(f.events.registered) != 1 {
		t.Fatalf("expected one registered event, got %d", len(f.events.registered))
	}
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	f := newRegistrationFixture(t)
	if err := f.accounts.Create(context.Background(), &domain.Account{ID: "acc-1", Email: "ada@example.com"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	if err := f.service.Register(context.Background(), validSignup()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newRegistrationFixture(t)

	input := validSignup()
	input.Password = "lowercasepassword"

	if err := f.service.Register(context.Background(), input); !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
	if len(f.pending.staged) != 0 {
		t.Fatal("a rejected signup must not be staged")
	}
}

func TestVerifyEmailMaterializesAccount(t *testing.T) {
	f := newRegistrationFixture(t)

	if err := f.service.Register(context.Background(), validSignup()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	code := f.notifier.lastCode(t)

	account, err := f.service.VerifyEmail(context.Background(), "ada@example.com", code)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if account.Status != domain.AccountStatusActive {
		t.Fatalf("expected active account, got %q", account.Status)
	}
	if !account.EmailVerified {
		t.Fatal("expected the email to be marked verified")
	}
	if account.PasswordAlgo != "argon2id" {
		t.Fatalf("unexpected password algo %q", account.PasswordAlgo)
	}

	ok, err := security.VerifyPassword(strongPassword, account.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify the signup password (ok=%v err=%v)", ok, err)
	}

	if _, ok := f.pending.staged["ada@example.com"]; ok {
		t.Fatal("staged registration must be discarded after verification")
	}
	if len(f.events.verified) != 1 {
		t.Fatalf("expected one verified event, got %d", len(f.events.verified))
	}
}

func TestVerifyEmailWrongCodeKeepsSignupStaged(t *testing.T) {
	f := newRegistrationFixture(t)

	if err := f.service.Register(context.Background(), validSignup()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := f.service.VerifyEmail(context.Background(), "ada@example.com", "000000"); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected ErrVerificationCodeInvalid, got %v", err)
	}

	if _, ok := f.pending.staged["ada@example.com"]; !ok {
		t.Fatal("a failed attempt must leave the staged signup in place")
	}
	if len(f.accounts.accounts) != 0 {
		t.Fatal("no account may be created on a failed verification")
	}
}

func TestVerifyEmailWithoutStagedSignup(t *testing.T) {
	f := newRegistrationFixture(t)

	// A valid code with no staged payload can happen when the pending TTL
	// elapsed between issue and verify.
	if _, err := f.service.otp.Issue(context.Background(), domain.PurposeRegistration, "ada@example.com", "Ada"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := f.notifier.lastCode(t)

	if _, err := f.service.VerifyEmail(context.Background(), "ada@example.com", code); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
	}
}

func TestRegisterAgainSupersedesStagedSignup(t *testing.T) {
	f := newRegistrationFixture(t)

	if err := f.service.Register(context.Background(), validSignup()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	firstCode := f.notifier.lastCode(t)

	second := validSignup()
	second.FirstName = "Augusta"
	if err := f.service.Register(context.Background(), second); err != nil {
		t.Fatalf("second register failed: %v", err)
	}
	secondCode := f.notifier.lastCode(t)

	if firstCode == secondCode {
		t.Skip("codes collided, cannot distinguish supersession")
	}

	if _, err := f.service.VerifyEmail(context.Background(), "ada@example.com", firstCode); !errors.Is(err, ErrVerificationCodeInvalid) {
		t.Fatalf("expected superseded code to be rejected, got %v", err)
	}

	account, err := f.service.VerifyEmail(context.Background(), "ada@example.com", secondCode)
	if err != nil {
		t.Fatalf("verify with latest code failed: %v", err)
	}
	if account.FirstName != "Augusta" {
		t.Fatalf("expected latest staged payload to win, got first name %q", account.FirstName)
	}
}

func TestResendCode(t *testing.T) {
	f := newRegistrationFixture(t)

	if err := f.service.Register(context.Background(), validSignup()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := f.service.ResendCode(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if len(f.notifier.sent) != 2 {
		t.Fatalf("expected two delivered codes, got %d", len(f.notifier.sent))
	}

	if _, err := f.service.VerifyEmail(context.Background(), "ada@example.com", f.notifier.lastCode(t)); err != nil {
		t.Fatalf("verify with resent code failed: %v", err)
	}
}

func TestResendCodeWithoutStagedSignup(t *testing.T) {
	f := newRegistrationFixture(t)

	if err := f.service.ResendCode(context.Background(), "ghost@example.com"); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
	}
}
