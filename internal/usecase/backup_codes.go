package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
)

// BackupCodeConfig tunes recovery code batches.
type BackupCodeConfig struct {
	BatchSize  int
	CodeLength int
}

// BackupCodeService manages single-use recovery codes. Plaintext codes are
// returned exactly once at generation; only hashes are stored.
type BackupCodeService struct {
	codes port.BackupCodeRepository
	cfg   BackupCodeConfig
}

// NewBackupCodeService constructs a backup code service.
func NewBackupCodeService(codes port.BackupCodeRepository, cfg BackupCodeConfig) *BackupCodeService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 8
	}
	return &BackupCodeService{codes: codes, cfg: cfg}
}

// Generate replaces the account's batch and returns the new plaintext codes.
func (s *BackupCodeService) Generate(ctx context.Context, accountID string) ([]string, error) {
	plaintexts := make([]string, 0, s.cfg.BatchSize)
	hashes := make([]string, 0, s.cfg.BatchSize)

	for i := 0; i < s.cfg.BatchSize; i++ {
		code, err := security.GenerateBackupCode(s.cfg.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		plaintexts = append(plaintexts, code)
		hashes = append(hashes, security.HashToken(code))
	}

	if err := s.codes.Replace(ctx, accountID, hashes); err != nil {
		return nil, fmt.Errorf("store backup codes: %w", err)
	}

	return plaintexts, nil
}

// Consume spends the presented code. Codes are compared case-insensitively
// since the alphabet is uppercase and users retype them by hand.
func (s *BackupCodeService) Consume(ctx context.Context, accountID, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false, nil
	}

	consumed, err := s.codes.Consume(ctx, accountID, security.HashToken(code))
	if err != nil {
		return false, fmt.Errorf("consume backup code: %w", err)
	}

	return consumed, nil
}

// Remaining reports how many unused codes the account has left.
func (s *BackupCodeService) Remaining(ctx context.Context, accountID string) (int, error) {
	count, err := s.codes.Count(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("count backup codes: %w", err)
	}
	return count, nil
}

// Clear discards the account's batch, used when 2FA is disabled.
func (s *BackupCodeService) Clear(ctx context.Context, accountID string) error {
	if err := s.codes.DeleteAll(ctx, accountID); err != nil {
		return fmt.Errorf("clear backup codes: %w", err)
	}
	return nil
}
