package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hazz-dev/healthwatch/internal/state"
)

// Notifier delivers a rendered alert message.
type Notifier interface {
	Send(ctx context.Context, tr state.Transition) error
}

// Webhook posts transitions as JSON to a URL. The payload carries a "text"
// field, so Slack-style incoming webhooks accept it unchanged.
type Webhook struct {
	URL    string
	Client *http.Client
}

// NewWebhook returns a Webhook for url, or nil if url is empty.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Text           string `json:"text"`
	Service        string `json:"service"`
	URL            string `json:"url"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	Message        string `json:"message,omitempty"`
	ChangedAt      string `json:"changed_at"`
	Source         string `json:"source"`
}

// Send posts tr to the webhook. Any non-2xx response is an error.
func (w *Webhook) Send(ctx context.Context, tr state.Transition) error {
	body, err := json.Marshal(webhookPayload{
		Text:           Format(tr),
		Service:        tr.Service,
		URL:            tr.URL,
		Status:         string(tr.Current),
		PreviousStatus: string(tr.Previous),
		Message:        tr.Message,
		ChangedAt:      tr.At.UTC().Format(time.RFC3339),
		Source:         "healthwatch",
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Format renders tr as a single human-readable line.
func Format(tr state.Transition) string {
	icon := "🔴"
	if tr.Current == state.StatusUp {
		icon = "🟢"
	}
	text := fmt.Sprintf("%s *%s* is %s (was %s)", icon, tr.Service, tr.Current, tr.Previous)
	if tr.Message != "" {
		text += ": " + tr.Message
	}
	return text
}
