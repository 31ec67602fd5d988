package port

import "context"

// BackupCodeRepository stores hashed single-use recovery codes.
type BackupCodeRepository interface {
	// Replace atomically discards the account's existing batch and installs
	// the given hashes as the new one.
	Replace(ctx context.Context, accountID string, hashes []string) error
	// Consume deletes the stored row matching the hash and reports whether
	// one was consumed. A hash with no matching row leaves the batch
	// untouched.
	Consume(ctx context.Context, accountID, codeHash string) (bool, error)
	Count(ctx context.Context, accountID string) (int, error)
	DeleteAll(ctx context.Context, accountID string) error
}
