package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pollwatch/pollwatch/internal/provider/resilience"
)

// ErrWebhookNotConfigured is returned by NewWebhook when the URL is empty.
var ErrWebhookNotConfigured = errors.New("webhook url is empty")

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookConfig holds configuration for the webhook notifier.
type WebhookConfig struct {
	// URL receives the POST.
	URL string

	// Recipient is copied into every payload.
	Recipient string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer
}

// Webhook posts {"recipient", "text"} JSON to a messaging endpoint.
type Webhook struct {
	url        string
	recipient  string
	httpClient HTTPDoer
}

type webhookPayload struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, ErrWebhookNotConfigured
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.SideChannelClientConfig("webhook"))
	}

	return &Webhook{
		url:        cfg.URL,
		recipient:  cfg.Recipient,
		httpClient: httpClient,
	}, nil
}

// Name returns the notifier name.
func (w *Webhook) Name() string {
	return "webhook"
}

// Notify posts the message text.
func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{Recipient: w.recipient, Text: msg.Text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from webhook", resp.StatusCode)
	}
	return nil
}
