package domain

import "time"

// VerificationPurpose scopes a one-time code to the flow that issued it.
type VerificationPurpose string

const (
	PurposeRegistration  VerificationPurpose = "registration"
	PurposeLogin         VerificationPurpose = "login"
	PurposePasswordReset VerificationPurpose = "password_reset"
)

// VerificationCode is a short numeric code bound to a (subject, purpose)
// pair. At most one unconsumed code exists per pair: issuing a new code
// supersedes any earlier one for the same subject and purpose.
type VerificationCode struct {
	Purpose   VerificationPurpose
	Subject   string
	Code      string
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}
