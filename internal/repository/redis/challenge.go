package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
	"github.com/Imagineer253/compass-shipment-tracker/internal/core/port"
	"github.com/Imagineer253/compass-shipment-tracker/internal/repository"
)

const defaultChallengePrefix = "challenge"

// ChallengeRepository keeps pending second-factor challenges in Redis as
// JSON values with a server-side TTL.
type ChallengeRepository struct {
	client *red.Client
	prefix string
}

// NewChallengeRepository constructs a challenge repository with the provided Redis client and key prefix.
func NewChallengeRepository(client *red.Client, keyPrefix string) *ChallengeRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultChallengePrefix
	}

	return &ChallengeRepository{client: client, prefix: prefix}
}

// Put stores the challenge under its opaque ID.
func (r *ChallengeRepository) Put(ctx context.Context, challenge domain.PendingChallenge, ttl time.Duration) error {
	if strings.TrimSpace(challenge.ID) == "" {
		return errors.New("challenge id is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	if err := r.client.Set(ctx, r.key(challenge.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis store challenge: %w", err)
	}

	return nil
}

// Get retrieves a pending challenge by ID.
func (r *ChallengeRepository) Get(ctx context.Context, id string) (*domain.PendingChallenge, error) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get challenge: %w", err)
	}

	var challenge domain.PendingChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}

	return &challenge, nil
}

// Delete removes the challenge and reports whether it existed. Exactly one
// concurrent caller observes true for a given ID.
func (r *ChallengeRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete challenge: %w", err)
	}

	return deleted > 0, nil
}

func (r *ChallengeRepository) key(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.TrimSpace(id))
}

var _ port.ChallengeStore = (*ChallengeRepository)(nil)
