package history

import (
	"context"
	"time"
)

// Login attempt outcomes.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// LoginAttempt is one immutable row of the login audit trail.
type LoginAttempt struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// Store is the audit-store boundary: append-only writes plus a
// most-recent query. Implementations must be safe for concurrent
// writers.
type Store interface {
	Append(ctx context.Context, attempt LoginAttempt) error
	RecentByUsername(ctx context.Context, username string, limit int) ([]LoginAttempt, error)
}
