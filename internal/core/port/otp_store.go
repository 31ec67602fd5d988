package port

import (
	"context"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// OTPVerifyResult reports the outcome of a single verification attempt
// against the stored code for a (purpose, subject) pair.
type OTPVerifyResult int

const (
	// OTPMatch means the code matched and the record was consumed.
	OTPMatch OTPVerifyResult = iota
	// OTPMismatch means the code did not match; the attempt was counted.
	OTPMismatch
	// OTPNotFound means no code is outstanding for the pair.
	OTPNotFound
	// OTPExpired means a code existed but its TTL elapsed.
	OTPExpired
	// OTPAttemptsExhausted means the failure budget was spent; the record
	// was consumed and a fresh code must be issued.
	OTPAttemptsExhausted
)

// OTPStore holds one-time verification codes keyed by (purpose, subject).
// Put supersedes any outstanding code for the same pair.
type OTPStore interface {
	Put(ctx context.Context, code domain.VerificationCode, ttl time.Duration) error
	// Verify compares the candidate against the stored code, counts the
	// attempt, and consumes the record on match or on budget exhaustion.
	// The comparison and state change are a single atomic step.
	Verify(ctx context.Context, purpose domain.VerificationPurpose, subject, candidate string, maxAttempts int) (OTPVerifyResult, error)
	Delete(ctx context.Context, purpose domain.VerificationPurpose, subject string) error
}
