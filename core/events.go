package core

import "time"

// EventType names an authentication event
type EventType string

const (
	EventUserRegistered  EventType = "user.registered"
	EventUserLoggedIn    EventType = "user.logged_in"
	EventUserLoginFailed EventType = "user.login_failed"
	EventUserLoggedOut   EventType = "user.logged_out"
	EventTokenRefreshed  EventType = "token.refreshed"
)

// Event is published after a lifecycle transition
type Event struct {
	Type       EventType `json:"type"`
	IdentityID string    `json:"identity_id,omitempty"`
	TokenID    string    `json:"token_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
