package models

import "time"

// LoginAttempt is one row in the append-only attempt ledger. Rows are never
// updated or deleted individually; they are counted over rolling windows and
// pruned in bulk past the retention horizon.
type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	UserAgent   string
	Success     bool
	UserID      *string
	AttemptTime time.Time
}
