// Package handlers implements one delivery handler per channel kind behind
// a uniform Send contract. Handlers parse their channel configuration at
// send time, contact nothing when required keys are missing, and never
// retry: retry policy belongs to the caller.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/treerootboy/airflow-notification-plugin/internal/config"
	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// sendTimeout bounds every outbound network call.
const sendTimeout = 10 * time.Second

var (
	// ErrMissingConfig marks a send rejected before any network call
	// because a required config key or parameter was absent.
	ErrMissingConfig = errors.New("missing required channel configuration")

	// ErrNotImplemented marks a channel kind whose delivery path is not
	// built yet. Callers must treat it as "feature absent", not as a
	// transient send failure.
	ErrNotImplemented = errors.New("channel handler not implemented")

	// ErrMissingHandler is returned for channel kinds with no registered
	// handler.
	ErrMissingHandler = errors.New("no handler registered for channel kind")
)

// SendError reports a delivery rejected by the remote endpoint.
type SendError struct {
	Kind       models.ChannelKind
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

// Params carries the per-recipient delivery parameters built by the
// dispatcher. Fields irrelevant to a handler are left empty.
type Params struct {
	UserID      string
	DagID       string
	TaskID      string
	PhoneNumber string
	DeviceToken string
}

// Handler sends one rendered message through a channel. config is the
// parsed channel configuration document.
type Handler interface {
	Send(ctx context.Context, config map[string]any, message string, params Params) error
}

// Registry maps channel kinds to their handlers. It is populated once at
// startup so an unknown kind surfaces immediately instead of at send time.
type Registry struct {
	handlers map[models.ChannelKind]Handler
}

// NewRegistry builds the full handler set.
func NewRegistry(cfg config.Config) *Registry {
	client := &http.Client{Timeout: sendTimeout}
	return &Registry{handlers: map[models.ChannelKind]Handler{
		models.ChannelSlack: NewSlackHandler(client, cfg.Notification.SlackRatePerSecond),
		models.ChannelSMS:   NewSMSHandler(client),
		models.ChannelYoudu: NewYouduHandler(client),
		models.ChannelFCM:   NewFCMHandler(client, ""),
		models.ChannelAPNS:  &APNSHandler{},
	}}
}

// Register overrides the handler for a kind. Used by wiring code and tests.
func (r *Registry) Register(kind models.ChannelKind, h Handler) {
	if r.handlers == nil {
		r.handlers = make(map[models.ChannelKind]Handler)
	}
	r.handlers[kind] = h
}

// For returns the handler for a channel kind.
func (r *Registry) For(kind models.ChannelKind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingHandler, kind)
	}
	return h, nil
}

// stringValue reads a string key from a parsed config document.
func stringValue(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// postJSON issues a JSON POST and returns the response status and a
// bounded read of the body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
