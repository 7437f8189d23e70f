package models

import "time"

// ChannelKind identifies the delivery mechanism of a notification channel.
// The set is closed; dispatch resolves handlers through a fixed registry
// keyed by this type.
type ChannelKind string

const (
	ChannelSlack ChannelKind = "slack"
	ChannelSMS   ChannelKind = "sms"
	ChannelYoudu ChannelKind = "youdu"
	ChannelFCM   ChannelKind = "fcm"
	ChannelAPNS  ChannelKind = "apns"
)

// ChannelKinds lists every supported kind, in declaration order.
var ChannelKinds = []ChannelKind{ChannelSlack, ChannelSMS, ChannelYoudu, ChannelFCM, ChannelAPNS}

// Valid reports whether k is one of the supported channel kinds.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelSlack, ChannelSMS, ChannelYoudu, ChannelFCM, ChannelAPNS:
		return true
	}
	return false
}

// PushPlatform returns the device platform a push channel delivers to.
// ok is false for non-push kinds.
func (k ChannelKind) PushPlatform() (PlatformKind, bool) {
	switch k {
	case ChannelFCM:
		return PlatformAndroid, true
	case ChannelAPNS:
		return PlatformIOS, true
	}
	return "", false
}

// Channel is a configured outbound destination. Config holds a serialized
// JSON document with kind-specific keys (webhook URL, API key, ...); it is
// parsed at send time, not validated at write time.
type Channel struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Kind      ChannelKind `json:"channel_type"`
	Config    string      `json:"config"`
	Active    bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
