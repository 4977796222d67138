package models

import (
	"time"
)

// User is the identity record for a localhive account. The TOTP secret is
// stored AES-256-GCM encrypted; an account with a secret but TOTPEnabled=false
// is mid-setup (or has disabled the second factor and kept the secret).
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	Name            string
	TOTPSecretEnc   []byte
	TOTPSecretNonce []byte
	TOTPEnabled     bool
	LockedUntil     *time.Time
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasTOTPSecret reports whether a secret has been provisioned (setup pending,
// enabled, or disabled with the secret retained).
func (u *User) HasTOTPSecret() bool {
	return len(u.TOTPSecretEnc) > 0
}

// IsLocked reports whether the account lockout is set and still in the future.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
