package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

const defaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMHandler sends push notifications through Firebase Cloud Messaging.
// Required config: server_key. The device token comes from the delivery
// params. A 200 response only counts as delivered when the provider
// reports at least one success.
type FCMHandler struct {
	client   *http.Client
	endpoint string
}

// NewFCMHandler builds an FCM handler. An empty endpoint selects the
// production FCM URL.
func NewFCMHandler(client *http.Client, endpoint string) *FCMHandler {
	if endpoint == "" {
		endpoint = defaultFCMEndpoint
	}
	return &FCMHandler{client: client, endpoint: endpoint}
}

func (h *FCMHandler) Send(ctx context.Context, config map[string]any, message string, params Params) error {
	serverKey := stringValue(config, "server_key")
	if serverKey == "" || params.DeviceToken == "" {
		return fmt.Errorf("%w: server_key and device token are required", ErrMissingConfig)
	}

	payload := map[string]any{
		"to": params.DeviceToken,
		"notification": map[string]any{
			"title": "Airflow Notification",
			"body":  message,
		},
		"data": map[string]any{
			"dag_id":  params.DagID,
			"task_id": params.TaskID,
		},
	}
	headers := map[string]string{
		"Authorization": "key=" + serverKey,
	}

	status, body, err := postJSON(ctx, h.client, h.endpoint, headers, payload)
	if err != nil {
		return fmt.Errorf("failed to post to fcm: %w", err)
	}
	if status != http.StatusOK {
		return &SendError{Kind: models.ChannelFCM, StatusCode: status, Body: string(body)}
	}

	var result struct {
		Success int `json:"success"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode fcm response: %w", err)
	}
	if result.Success < 1 {
		return &SendError{Kind: models.ChannelFCM, StatusCode: status, Body: string(body)}
	}
	return nil
}
