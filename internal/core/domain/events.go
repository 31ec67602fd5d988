package domain

import "time"

// AccountRegisteredEvent represents the payload for compass.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	Email        string
	Organization string
	StagedAt     time.Time
	Metadata     map[string]any
}

// AccountVerifiedEvent represents the payload for compass.account.verified messages.
type AccountVerifiedEvent struct {
	EventID    string
	AccountID  string
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// LoginSucceededEvent represents the payload for compass.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID       string
	AccountID     string
	Method        string
	DeviceTrusted bool
	IP            *string
	OccurredAt    time.Time
	Metadata      map[string]any
}

// DeviceTrustedEvent represents the payload for compass.device.trusted messages.
type DeviceTrustedEvent struct {
	EventID    string
	AccountID  string
	DeviceID   string
	DeviceName string
	ExpiresAt  time.Time
	TrustedAt  time.Time
	Metadata   map[string]any
}

// TwoFAEnabledEvent represents the payload for compass.twofa.enabled messages.
type TwoFAEnabledEvent struct {
	EventID     string
	AccountID   string
	BackupCodes int
	EnabledAt   time.Time
	Metadata    map[string]any
}

// TwoFADisabledEvent represents the payload for compass.twofa.disabled messages.
type TwoFADisabledEvent struct {
	EventID    string
	AccountID  string
	DisabledAt time.Time
	Metadata   map[string]any
}
