package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// SMSHandler posts messages to an SMS gateway with bearer auth.
// Required config: api_url, api_key. The destination number comes from
// the delivery params, falling back to the channel's phone_number key.
type SMSHandler struct {
	client *http.Client
}

func NewSMSHandler(client *http.Client) *SMSHandler {
	return &SMSHandler{client: client}
}

func (h *SMSHandler) Send(ctx context.Context, config map[string]any, message string, params Params) error {
	apiURL := stringValue(config, "api_url")
	apiKey := stringValue(config, "api_key")
	phone := params.PhoneNumber
	if phone == "" {
		phone = stringValue(config, "phone_number")
	}
	if apiURL == "" || apiKey == "" || phone == "" {
		return fmt.Errorf("%w: api_url, api_key and destination number are required", ErrMissingConfig)
	}

	payload := map[string]any{
		"to":      phone,
		"message": message,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
	}

	status, body, err := postJSON(ctx, h.client, apiURL, headers, payload)
	if err != nil {
		return fmt.Errorf("failed to post to sms gateway: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &SendError{Kind: models.ChannelSMS, StatusCode: status, Body: string(body)}
	}
	return nil
}
