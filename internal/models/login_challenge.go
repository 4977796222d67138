package models

import "time"

// LoginChallenge binds a user to a pending second-factor verification after a
// successful first-factor login. A challenge is single-use: the transition from
// unconsumed to consumed happens exactly once, enforced by a conditional update
// in the repository.
type LoginChallenge struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsConsumed reports whether the challenge has already been used.
func (c *LoginChallenge) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// IsExpired reports whether the challenge validity window has elapsed.
func (c *LoginChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
