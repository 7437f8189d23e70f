package handlers

import (
	"context"
	"fmt"
)

// APNSHandler is a placeholder for Apple Push Notification Service
// delivery. APNS needs certificate-based authentication that is handled
// by an external provider; until that integration exists every send
// returns ErrNotImplemented so callers can tell "feature absent" apart
// from a transient failure.
type APNSHandler struct{}

func (h *APNSHandler) Send(_ context.Context, _ map[string]any, _ string, _ Params) error {
	return fmt.Errorf("%w: apns", ErrNotImplemented)
}
