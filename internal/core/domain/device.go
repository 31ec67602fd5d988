package domain

import "time"

// TrustedDevice is a client vetted by a successful second-factor challenge
// and exempt from further challenges until its grant expires. The
// fingerprint format and expiry semantics are durable: rows must stay
// readable across deployments.
type TrustedDevice struct {
	ID          string
	AccountID   string
	Fingerprint string
	Name        string
	UserAgent   string
	IP          *string
	CreatedAt   time.Time
	LastUsedAt  time.Time
	ExpiresAt   time.Time
	Revoked     bool
}

// Active reports whether the trust grant is usable at the given time.
func (d TrustedDevice) Active(now time.Time) bool {
	return !d.Revoked && now.Before(d.ExpiresAt)
}
