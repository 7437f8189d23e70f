package models

import "time"

// PlatformKind identifies the client platform of a registered device.
type PlatformKind string

const (
	PlatformPWA     PlatformKind = "pwa"
	PlatformIOS     PlatformKind = "ios"
	PlatformAndroid PlatformKind = "android"
)

// PlatformKinds lists every supported platform.
var PlatformKinds = []PlatformKind{PlatformPWA, PlatformIOS, PlatformAndroid}

// Valid reports whether p is a supported platform.
func (p PlatformKind) Valid() bool {
	switch p {
	case PlatformPWA, PlatformIOS, PlatformAndroid:
		return true
	}
	return false
}

// Device is a registered client endpoint for push notifications.
// Rows are soft-deleted: unregistering flips Active to false.
type Device struct {
	ID         int64        `json:"id"`
	Token      string       `json:"device_token"`
	Platform   PlatformKind `json:"platform_type"`
	UserID     string       `json:"user_id"`
	Active     bool         `json:"is_active"`
	LastUsedAt time.Time    `json:"last_used"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
