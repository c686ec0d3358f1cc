package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	EventRefreshTokenReuse = "refresh_token_reuse"
	EventRefreshFromNewIP  = "refresh_from_new_ip"
	EventUserDeactivated   = "user_deactivated"
)

type WebhookNotify struct {
	UserID    string `json:"user_id"`
	Event     string `json:"event"`
	NewIP     string `json:"new_ip,omitempty"`
	OldIP     string `json:"old_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	TimeStamp string `json:"timestamp"`
}

// WebhookNotifier posts security events to a single URL. An empty URL turns
// it into a no-op.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, payload WebhookNotify) error {
	if n == nil || n.url == "" {
		return nil
	}
	if payload.TimeStamp == "" {
		payload.TimeStamp = time.Now().UTC().Format(time.RFC3339)
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка преобразования в json: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса webhook: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		return fmt.Errorf("ошибка отправки webhook: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook ответил статусом %d", response.StatusCode)
	}

	return nil
}
