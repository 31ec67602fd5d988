package domain

import "time"

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusLocked   AccountStatus = "locked"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account mirrors the persisted representation in the accounts table.
// An account only comes into existence once its email address has been
// verified; unverified signups live as staged PendingRegistration entries.
type Account struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Phone         *string
	Organization  string
	PasswordHash  string
	PasswordAlgo  string
	Status        AccountStatus
	EmailVerified bool

	// TwoFASecret is set once during 2FA setup and only replaced through an
	// explicit re-setup that also regenerates the backup code batch.
	TwoFAEnabled bool
	TwoFASecret  string

	// DeviceSalt scopes device fingerprints to the account. Established once
	// on first trust grant and never rotated while trusted devices exist.
	DeviceSalt string

	ProfileCompleted bool
	RegisteredAt     time.Time
	LastLogin        *time.Time
}

// FullName returns the display name used in notification templates.
func (a Account) FullName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	default:
		return a.Email
	}
}
