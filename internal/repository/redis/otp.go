package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
)

const (
	defaultOTPPrefix = "otp"

	fieldCode      = "code"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
)

// verifyScript compares the candidate against the stored code, counts the
// attempt, and consumes the record on match or budget exhaustion. Running
// as a single Lua script makes concurrent verifications settle on exactly
// one winner. The current time travels as an argument so the script stays
// deterministic under replication.
var verifyScript = red.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
  return 'not_found'
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at') or '0')
local now = tonumber(ARGV[3])
if expires > 0 and now >= expires then
  redis.call('DEL', KEYS[1])
  return 'expired'
end
if code == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 'match'
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if attempts >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return 'exhausted'
end
return 'mismatch'
`)

// OTPRepository persists one-time verification codes in Redis hashes,
// keyed by purpose and subject.
type OTPRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewOTPRepository constructs a new OTP repository with the provided Redis client and key prefix.
func NewOTPRepository(client *red.Client, keyPrefix string) *OTPRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPPrefix
	}

	return &OTPRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Put stores the code, replacing any outstanding code for the same
// purpose and subject.
func (r *OTPRepository) Put(ctx context.Context, code domain.VerificationCode, ttl time.Duration) error {
	switch {
	case code.Purpose == "":
		return errors.New("purpose is required")
	case strings.TrimSpace(code.Subject) == "":
		return errors.New("subject is required")
	case strings.TrimSpace(code.Code) == "":
		return errors.New("code is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	now := r.now().UTC()
	expiresAt := now.Add(ttl)

	key := r.key(code.Purpose, code.Subject)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldCode:      code.Code,
		fieldCreatedAt: now.Unix(),
		fieldExpiresAt: expiresAt.Unix(),
		fieldAttempts:  0,
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store otp: %w", err)
	}

	return nil
}

// Verify runs the atomic compare-and-consume script against the stored code.
func (r *OTPRepository) Verify(ctx context.Context, purpose domain.VerificationPurpose, subject, candidate string, maxAttempts int) (port.OTPVerifyResult, error) {
	if maxAttempts <= 0 {
		return 0, errors.New("max attempts must be positive")
	}

	key := r.key(purpose, subject)
	now := r.now().UTC().Unix()

	result, err := verifyScript.Run(ctx, r.client, []string{key}, candidate, maxAttempts, now).Text()
	if err != nil {
		return 0, fmt.Errorf("redis verify otp: %w", err)
	}

	switch result {
	case "match":
		return port.OTPMatch, nil
	case "mismatch":
		return port.OTPMismatch, nil
	case "not_found":
		return port.OTPNotFound, nil
	case "expired":
		return port.OTPExpired, nil
	case "exhausted":
		return port.OTPAttemptsExhausted, nil
	default:
		return 0, fmt.Errorf("redis verify otp: unexpected result %q", result)
	}
}

// Delete removes the code without consuming an attempt.
func (r *OTPRepository) Delete(ctx context.Context, purpose domain.VerificationPurpose, subject string) error {
	key := r.key(purpose, subject)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}

	return nil
}

// WithClock overrides the internal clock, used in tests.
func (r *OTPRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *OTPRepository) key(purpose domain.VerificationPurpose, subject string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, purpose, strings.TrimSpace(subject))
}

var _ port.OTPStore = (*OTPRepository)(nil)
