package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WebhookConfig configures a generic JSON-webhook channel, used for
// IM-style integrations (Telegram/WeChat/Slack-compatible relays) that
// accept a flat JSON POST.
type WebhookConfig struct {
	URL         string
	HTTPTimeout time.Duration
	DefaultTo   []string
}

// DefaultWebhookTimeout matches the teacher's alerting-client default.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookChannel posts notifications to a JSON webhook endpoint,
// shaped after the teacher corpus's alert-client pattern (build
// payload, POST, drain body, treat a status of 400 or above as failure).
type WebhookChannel struct {
	id     string
	cfg    WebhookConfig
	client *http.Client
	log    zerolog.Logger
}

// NewWebhookChannel builds a WebhookChannel identified by id (e.g.
// "im"), so chunk-byte overrides and group routing can target it.
func NewWebhookChannel(id string, cfg WebhookConfig, log zerolog.Logger) *WebhookChannel {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultWebhookTimeout
	}
	return &WebhookChannel{
		id:     id,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		log:    log.With().Str("channel", id).Logger(),
	}
}

// ID implements Channel.
func (w *WebhookChannel) ID() string { return w.id }

type webhookPayload struct {
	Recipients []string `json:"recipients,omitempty"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// Send implements Channel.
func (w *WebhookChannel) Send(ctx context.Context, recipients []string, subject, body string) error {
	to := recipients
	if len(to) == 0 {
		to = w.cfg.DefaultTo
	}

	payload, err := json.Marshal(webhookPayload{Recipients: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Error().Err(err).Msg("webhook call failed")
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		w.log.Error().Int("status", resp.StatusCode).Msg("webhook returned error status")
		return fmt.Errorf("webhook: HTTP %d", resp.StatusCode)
	}
	return nil
}
