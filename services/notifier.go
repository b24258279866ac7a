package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"xandpulse/models"
)

// Notifier delivers one transition event to one subscriber channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, channel string, ev models.TransitionEvent) error
}

// NotifierRouter sends URL channels to the webhook notifier and everything
// else (Discord channel ids) to the chat notifier.
type NotifierRouter struct {
	webhook Notifier
	chat    Notifier
}

func NewNotifierRouter(webhook, chat Notifier) *NotifierRouter {
	return &NotifierRouter{webhook: webhook, chat: chat}
}

func (r *NotifierRouter) Name() string { return "router" }

func (r *NotifierRouter) Notify(ctx context.Context, channel string, ev models.TransitionEvent) error {
	target := r.chat
	if isURLChannel(channel) {
		target = r.webhook
	}
	if target == nil {
		return fmt.Errorf("no notifier for channel %q", channel)
	}
	return target.Notify(ctx, channel, ev)
}

func isURLChannel(channel string) bool {
	return strings.HasPrefix(channel, "http://") || strings.HasPrefix(channel, "https://")
}

// WebhookNotifier POSTs the event as JSON to the channel URL.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Notify(ctx context.Context, channel string, ev models.TransitionEvent) error {
	if !isURLChannel(channel) {
		return errors.New("webhook: channel is not a URL")
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
