package notifications

import "time"

// Notification is a portal-facing alert surfaced to a client, e.g. a new
// appointment request or a billing event.
type Notification struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
