package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// SlackNotifier posts run summaries to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier creates a notifier for the given webhook. channel may be
// empty to use the webhook's default.
func NewSlackNotifier(webhookURL, channel string, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Notify posts a titled message. The response body is drained and discarded;
// Slack webhooks answer with a bare "ok".
func (s *SlackNotifier) Notify(ctx context.Context, title, message string) error {
	payload := map[string]any{
		"text": fmt.Sprintf("*%s*\n%s", title, message),
	}
	if s.channel != "" {
		payload["channel"] = s.channel
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook returned %s", resp.Status)
	}
	s.logger.Debug("slack notification sent", slog.String("title", title))
	return nil
}

var _ Notifier = (*SlackNotifier)(nil)
