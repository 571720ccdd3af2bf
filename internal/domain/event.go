package domain

import "time"

// Event is emitted by the negotiation core for the notification collaborator.
type Event struct {
	ID         string
	Type       EventType
	SessionID  string
	ProjectID  string
	Recipients []string
	Data       map[string]any
	OccurredAt time.Time
}
