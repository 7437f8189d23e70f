package models

import "time"

// Subscription binds (user, dag, event type) to a notification channel.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	DagID     string    `json:"dag_id"`
	EventType EventType `json:"event_type"`
	ChannelID int64     `json:"channel_id"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Channel is populated by the resolver join when the referenced
	// channel exists and is active. Not stored on the subscription row.
	Channel *Channel `json:"channel,omitempty"`
}
