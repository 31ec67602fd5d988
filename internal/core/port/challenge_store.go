package port

import (
	"context"
	"time"

	"github.com/Imagineer253/compass-shipment-tracker/internal/core/domain"
)

// ChallengeStore keeps pending second-factor challenges, keyed by their
// opaque ID. Records expire on their own after the challenge TTL.
type ChallengeStore interface {
	Put(ctx context.Context, challenge domain.PendingChallenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.PendingChallenge, error)
	// Delete removes the challenge and reports whether it existed. The
	// boolean lets callers claim a challenge exactly once under concurrent
	// resolution attempts.
	Delete(ctx context.Context, id string) (bool, error)
}
