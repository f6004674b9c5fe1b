package domain

import "time"

// AccountEventType enumerates the audit events emitted by account operations.
type AccountEventType string

const (
	EventRegistered   AccountEventType = "account.registered"
	EventLoggedIn     AccountEventType = "account.logged_in"
	EventLoginFailed  AccountEventType = "account.login_failed"
	EventUpdated      AccountEventType = "account.updated"
	EventDeleted      AccountEventType = "account.deleted"
	EventRoleAssigned AccountEventType = "account.role_assigned"
)

// AccountEvent records something that happened to an account.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     string           `json:"user_id,omitempty"`
	Email      string           `json:"email,omitempty"`
	Role       Role             `json:"role,omitempty"`
	ActorID    string           `json:"actor_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
