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

const defaultRegistrationPrefix = "pending_reg"

// RegistrationRepository stages signup payloads in Redis until the email
// address is verified. Keys are the normalized email so a repeat signup
// overwrites the earlier staging.
type RegistrationRepository struct {
	client *red.Client
	prefix string
}

// NewRegistrationRepository constructs a registration repository with the provided Redis client and key prefix.
func NewRegistrationRepository(client *red.Client, keyPrefix string) *RegistrationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRegistrationPrefix
	}

	return &RegistrationRepository{client: client, prefix: prefix}
}

// Put stages the registration payload.
func (r *RegistrationRepository) Put(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error {
	if strings.TrimSpace(reg.Email) == "" {
		return errors.New("email is required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}

	if err := r.client.Set(ctx, r.key(reg.Email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis store pending registration: %w", err)
	}

	return nil
}

// Get retrieves the staged payload for the email.
func (r *RegistrationRepository) Get(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	payload, err := r.client.Get(ctx, r.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get pending registration: %w", err)
	}

	var reg domain.PendingRegistration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return nil, fmt.Errorf("unmarshal pending registration: %w", err)
	}

	return &reg, nil
}

// Delete discards the staged payload.
func (r *RegistrationRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.key(email)).Err(); err != nil {
		return fmt.Errorf("redis delete pending registration: %w", err)
	}

	return nil
}

func (r *RegistrationRepository) key(email string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.ToLower(strings.TrimSpace(email)))
}

var _ port.RegistrationStore = (*RegistrationRepository)(nil)
