package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// YouduHandler posts messages to a Youdu enterprise IM webhook.
// Required config: webhook_url. Optional: app_id, forwarded as agentId.
type YouduHandler struct {
	client *http.Client
}

func NewYouduHandler(client *http.Client) *YouduHandler {
	return &YouduHandler{client: client}
}

func (h *YouduHandler) Send(ctx context.Context, config map[string]any, message string, params Params) error {
	webhookURL := stringValue(config, "webhook_url")
	if webhookURL == "" {
		return fmt.Errorf("%w: webhook_url", ErrMissingConfig)
	}

	payload := map[string]any{
		"toUser":  params.UserID,
		"msgType": "text",
		"text": map[string]any{
			"content": message,
		},
	}
	if appID := stringValue(config, "app_id"); appID != "" {
		payload["agentId"] = appID
	}

	status, body, err := postJSON(ctx, h.client, webhookURL, nil, payload)
	if err != nil {
		return fmt.Errorf("failed to post to youdu webhook: %w", err)
	}
	if status != http.StatusOK {
		return &SendError{Kind: models.ChannelYoudu, StatusCode: status, Body: string(body)}
	}
	return nil
}
