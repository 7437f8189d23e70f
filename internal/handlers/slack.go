package handlers

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// SlackHandler posts messages to a Slack incoming webhook.
// Required config: webhook_url. Optional: username, icon_emoji.
type SlackHandler struct {
	client  *http.Client
	limiter *rate.Limiter
}

func NewSlackHandler(client *http.Client, ratePerSecond int) *SlackHandler {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &SlackHandler{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
	}
}

func (h *SlackHandler) Send(ctx context.Context, config map[string]any, message string, _ Params) error {
	webhookURL := stringValue(config, "webhook_url")
	if webhookURL == "" {
		return fmt.Errorf("%w: webhook_url", ErrMissingConfig)
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack rate limit wait: %w", err)
	}

	username := stringValue(config, "username")
	if username == "" {
		username = "Airflow Notification"
	}
	icon := stringValue(config, "icon_emoji")
	if icon == "" {
		icon = ":airflow:"
	}

	payload := map[string]any{
		"text":       message,
		"username":   username,
		"icon_emoji": icon,
	}

	status, body, err := postJSON(ctx, h.client, webhookURL, nil, payload)
	if err != nil {
		return fmt.Errorf("failed to post to slack webhook: %w", err)
	}
	if status != http.StatusOK {
		return &SendError{Kind: models.ChannelSlack, StatusCode: status, Body: string(body)}
	}
	return nil
}
