package domain

import "time"

// ChallengeMethod identifies which engine resolves a pending challenge.
// Exactly one method is supplied per resolution attempt.
type ChallengeMethod string

const (
	ChallengeMethodTOTP   ChallengeMethod = "totp"
	ChallengeMethodBackup ChallengeMethod = "backup"
	ChallengeMethodEmail  ChallengeMethod = "email"
)

// DeviceContext captures the client attributes observed when a challenge
// was issued. They feed the trusted-device fingerprint on resolution.
type DeviceContext struct {
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
}

// PendingChallenge is the server-held record meaning "credentials accepted,
// second factor pending". Only its opaque ID ever crosses the wire; the
// client cannot influence remember or device fields on resolution.
type PendingChallenge struct {
	ID        string        `json:"id"`
	AccountID string        `json:"account_id"`
	Remember  bool          `json:"remember"`
	Device    DeviceContext `json:"device"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Expired reports whether the challenge has passed its TTL at the given time.
func (c PendingChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PendingRegistration is a staged signup payload keyed by email. It is
// materialized into an Account once the email verification code is
// confirmed, and discarded afterwards.
type PendingRegistration struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization"`
	CreatedAt    time.Time `json:"created_at"`
}
