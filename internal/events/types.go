package events

import "time"

// UserEvent is the immutable lifecycle snapshot published after a
// successful registration. Ownership passes to the publishing
// subsystem; the orchestrator never awaits delivery.
type UserEvent struct {
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}
