package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func storeCode(t *testing.T, repo *OTPRepository, subject, code string, ttl time.Duration) {
	t.Helper()

	err := repo.Put(context.Background(), domain.VerificationCode{
		Purpose: domain.PurposeRegistration,
		Subject: subject,
		Code:    code,
	}, ttl)
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
}

func TestOTPRepository_VerifyMatchConsumes(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	storeCode(t, repo, "user@example.com", "123456", 10*time.Minute)

	result, err := repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMatch {
		t.Fatalf("expected match, got %d", result)
	}

	result, err = repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPNotFound {
		t.Fatalf("expected not found after consume, got %d", result)
	}
}

func TestOTPRepository_VerifyMismatchCountsAttempt(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	storeCode(t, repo, "user@example.com", "123456", 10*time.Minute)

	result, err := repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "000000", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMismatch {
		t.Fatalf("expected mismatch, got %d", result)
	}

	attempts := server.HGet("otp:registration:user@example.com", "attempts")
	if attempts != "1" {
		t.Fatalf("expected 1 recorded attempt, got %q", attempts)
	}

	result, err = repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMatch {
		t.Fatalf("expected match after a mismatch, got %d", result)
	}
}

func TestOTPRepository_VerifyExhaustsBudget(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	storeCode(t, repo, "user@example.com", "123456", 10*time.Minute)

	result, err := repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "000000", 2)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMismatch {
		t.Fatalf("expected mismatch, got %d", result)
	}

	result, err = repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "111111", 2)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPAttemptsExhausted {
		t.Fatalf("expected exhausted, got %d", result)
	}

	// The record was consumed with the budget.
	result, err = repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 2)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPNotFound {
		t.Fatalf("expected not found after exhaustion, got %d", result)
	}
}

func TestOTPRepository_VerifyExpired(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	now := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	repo.WithClock(func() time.Time { return now })

	storeCode(t, repo, "user@example.com", "123456", 10*time.Minute)

	now = now.Add(11 * time.Minute)

	result, err := repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPExpired {
		t.Fatalf("expected expired, got %d", result)
	}
}

func TestOTPRepository_PutSupersedes(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	storeCode(t, repo, "user@example.com", "123456", 10*time.Minute)

	result, err := repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "000000", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMismatch {
		t.Fatalf("expected mismatch, got %d", result)
	}

	// Reissuing resets the attempt counter along with the code.
	storeCode(t, repo, "user@example.com", "654321", 10*time.Minute)

	attempts := server.HGet("otp:registration:user@example.com", "attempts")
	if attempts != "0" {
		t.Fatalf("expected attempts reset on reissue, got %q", attempts)
	}

	result, err = repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMismatch {
		t.Fatalf("expected superseded code to mismatch, got %d", result)
	}

	result, err = repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "654321", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPMatch {
		t.Fatalf("expected latest code to match, got %d", result)
	}
}

func TestOTPRepository_PutSetsTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	ttl := 10 * time.Minute
	storeCode(t, repo, "user@example.com", "123456", ttl)

	remaining := server.TTL("otp:registration:user@example.com")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestOTPRepository_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	storeCode(t, repo, "user@example.com", "123456", 10*time.Minute)

	if err := repo.Delete(context.Background(), domain.PurposeRegistration, "user@example.com"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	result, err := repo.Verify(context.Background(), domain.PurposeRegistration, "user@example.com", "123456", 5)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result != port.OTPNotFound {
		t.Fatalf("expected not found after delete, got %d", result)
	}
}

func TestOTPRepository_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "otp")

	if err := repo.Put(context.Background(), domain.VerificationCode{Subject: "a@b.c", Code: "1"}, time.Minute); err == nil {
		t.Fatalf("expected error for missing purpose")
	}
	if err := repo.Put(context.Background(), domain.VerificationCode{Purpose: domain.PurposeLogin, Code: "1"}, time.Minute); err == nil {
		t.Fatalf("expected error for missing subject")
	}
	if err := repo.Put(context.Background(), domain.VerificationCode{Purpose: domain.PurposeLogin, Subject: "a@b.c", Code: "1"}, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
	if _, err := repo.Verify(context.Background(), domain.PurposeLogin, "a@b.c", "1", 0); err == nil {
		t.Fatalf("expected error for non-positive max attempts")
	}
}
