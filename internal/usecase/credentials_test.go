package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

func TestCredentialVerify(t *testing.T) {
	account := &domain.Account{
		ID:           "acc-1",
		Email:        "user@example.com",
		PasswordHash: mustHashPassword(t, "X7#pQw9$Lz2m"),
		Status:       domain.AccountStatusActive,
	}
	service := NewCredentialService(newFakeAccountRepo(account))

	got, err := service.Verify(context.Background(), "user@example.com", "X7#pQw9$Lz2m")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got.ID != "acc-1" {
		t.Fatalf("expected account acc-1, got %s", got.ID)
	}
}

func TestCredentialVerifyNormalizesEmail(t *testing.T) {
	account := &domain.Account{
		ID:           "acc-1",
		Email:        "user@example.com",
		PasswordHash: mustHashPassword(t, "X7#pQw9$Lz2m"),
		Status:       domain.AccountStatusActive,
	}
	service := NewCredentialService(newFakeAccountRepo(account))

	if _, err := service.Verify(context.Background(), "  USER@Example.COM ", "X7#pQw9$Lz2m"); err != nil {
		t.Fatalf("expected success with unnormalized email, got %v", err)
	}
}

func TestCredentialVerifyWrongPassword(t *testing.T) {
	account := &domain.Account{
		ID:           "acc-1",
		Email:        "user@example.com",
		PasswordHash: mustHashPassword(t, "X7#pQw9$Lz2m"),
		Status:       domain.AccountStatusActive,
	}
	service := NewCredentialService(newFakeAccountRepo(account))

	if _, err := service.Verify(context.Background(), "user@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialVerifyUnknownEmail(t *testing.T) {
	service := NewCredentialService(newFakeAccountRepo())

	if _, err := service.Verify(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialVerifyInactiveAccount(t *testing.T) {
	account := &domain.Account{
		ID:           "acc-1",
		Email:        "user@example.com",
		PasswordHash: mustHashPassword(t, "X7#pQw9$Lz2m"),
		Status:       domain.AccountStatusLocked,
	}
	service := NewCredentialService(newFakeAccountRepo(account))

	if _, err := service.Verify(context.Background(), "user@example.com", "X7#pQw9$Lz2m"); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestCredentialVerifyByIDUnknownAccount(t *testing.T) {
	service := NewCredentialService(newFakeAccountRepo())

	if _, err := service.VerifyByID(context.Background(), "missing", "whatever"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
