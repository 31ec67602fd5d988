package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/repository"
)

func TestChallengeRepository_PutAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewChallengeRepository(client, "challenge")

	created := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	challenge := domain.PendingChallenge{
		ID:        "chal-1",
		AccountID: "acc-1",
		Remember:  true,
		Device:    domain.DeviceContext{UserAgent: "Mozilla/5.0", IP: "192.0.2.1"},
		CreatedAt: created,
		ExpiresAt: created.Add(5 * time.Minute),
	}

	if err := repo.Put(context.Background(), challenge, 5*time.Minute); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := repo.Get(context.Background(), "chal-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.AccountID != "acc-1" || !got.Remember {
		t.Fatalf("unexpected challenge %+v", got)
	}
	if got.Device.UserAgent != "Mozilla/5.0" || got.Device.IP != "192.0.2.1" {
		t.Fatalf("device context not round-tripped: %+v", got.Device)
	}
	if !got.ExpiresAt.Equal(challenge.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", challenge.ExpiresAt, got.ExpiresAt)
	}

	remaining := server.TTL("challenge:chal-1")
	if remaining <= 0 || remaining > 5*time.Minute {
		t.Fatalf("expected ttl within (0, 5m], got %v", remaining)
	}
}

func TestChallengeRepository_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewChallengeRepository(client, "challenge")

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChallengeRepository_DeleteClaimsOnce(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewChallengeRepository(client, "challenge")

	challenge := domain.PendingChallenge{ID: "chal-1", AccountID: "acc-1"}
	if err := repo.Put(context.Background(), challenge, time.Minute); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	claimed, err := repo.Delete(context.Background(), "chal-1")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first delete to claim the challenge")
	}

	claimed, err = repo.Delete(context.Background(), "chal-1")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if claimed {
		t.Fatalf("expected second delete to report the challenge gone")
	}
}

func TestChallengeRepository_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewChallengeRepository(client, "challenge")

	if err := repo.Put(context.Background(), domain.PendingChallenge{}, time.Minute); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := repo.Put(context.Background(), domain.PendingChallenge{ID: "chal-1"}, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
