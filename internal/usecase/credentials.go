package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
	"github.com/Imagineer253/compass-shipment-tracker/internal/repository"
)

// CredentialService checks email and password pairs against stored accounts.
type CredentialService struct {
	accounts port.AccountRepository
}

// NewCredentialService constructs a credential service.
func NewCredentialService(accounts port.AccountRepository) *CredentialService {
	return &CredentialService{accounts: accounts}
}

// Verify resolves the account for the email and checks the password.
// A missing account and a wrong password both return ErrInvalidCredentials
// so responses do not reveal which emails are registered. The password is
// always hashed, even when no account exists, to keep timing uniform.
func (s *CredentialService) Verify(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a hash so the miss costs as much as a real comparison.
			_, _ = security.HashPassword(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if account.Status != domain.AccountStatusActive {
		return nil, ErrInactiveAccount
	}

	return account, nil
}

// VerifyByID checks the password for a known account, used when the caller
// is already authenticated and re-confirms before a sensitive change.
func (s *CredentialService) VerifyByID(ctx context.Context, accountID, password string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}
