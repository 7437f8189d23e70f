package models

import "time"

// Template is a parameterized message body selected by event type and,
// optionally, channel kind. An empty Kind means the template applies to
// any channel.
type Template struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	EventType   EventType   `json:"event_type"`
	Kind        ChannelKind `json:"channel_type,omitempty"`
	Body        string      `json:"template_content"`
	Description string      `json:"description,omitempty"`
	Active      bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
