package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"ppe-monitor/internal/models"
	"time"
)

// WebhookSettings supplies the persisted webhook target. It is read on every send
// so changes take effect without a restart.
type WebhookSettings interface {
	Webhook() models.WebhookSetting
}

// Webhook posts alerts as JSON to an automation endpoint such as an n8n workflow.
type Webhook struct {
	settings WebhookSettings
	client   *http.Client
}

func NewWebhook(settings WebhookSettings, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{settings: settings, client: client}
}

func (w *Webhook) Name() string {
	return "webhook"
}

// Notify is a no-op while the webhook is disabled or has no URL.
func (w *Webhook) Notify(ctx context.Context, alert Alert) error {
	s := w.settings.Webhook()
	if !s.Active() {
		return nil
	}
	return w.post(ctx, s.URL, alert)
}

type announcement struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (w *Webhook) Announce(ctx context.Context, text string) error {
	s := w.settings.Webhook()
	if !s.Active() {
		return nil
	}
	return w.post(ctx, s.URL, announcement{Type: "daily_digest", Text: text, Timestamp: time.Now().UTC()})
}

// Test sends a sample alert to the configured URL even when the webhook is disabled.
func (w *Webhook) Test(ctx context.Context, location string) error {
	s := w.settings.Webhook()
	if s.URL == "" {
		return fmt.Errorf("%w: webhook url is not configured", ErrNotificationFailure)
	}
	return w.post(ctx, s.URL, Alert{
		Type:       "test",
		Worker:     "Test Worker",
		MissingPPE: "Safety Helmet",
		Location:   location,
		Severity:   models.SeverityMedium,
		Timestamp:  time.Now().UTC(),
	})
}

func (w *Webhook) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrNotificationFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook status %d", ErrNotificationFailure, resp.StatusCode)
	}
	return nil
}
