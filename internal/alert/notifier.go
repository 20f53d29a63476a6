package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrNotificationFailed wraps any notifier error. The alert stays pending and
// the next qualifying tick tries again.
var ErrNotificationFailed = errors.New("notification failed")

// Notifier delivers a message to the operator.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Compile-time assertions.
var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)

// WebhookNotifier posts {"text": message} to an incoming-webhook URL. Slack,
// Teams (legacy connectors) and Google Chat all accept this body.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier with a bounded HTTP client.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWebhookNotifierWithClient(url, &http.Client{Timeout: timeout})
}

// NewWebhookNotifierWithClient creates a WebhookNotifier with a caller-supplied client.
func NewWebhookNotifierWithClient(url string, client *http.Client) *WebhookNotifier {
	return &WebhookNotifier{url: url, httpClient: client}
}

func (w *WebhookNotifier) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Calloff-Alert-Id", uuid.NewString())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// LogNotifier writes alerts to the structured log. Used when no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (l *LogNotifier) Send(_ context.Context, message string) error {
	l.logger.Warn("call-off alert", "message", message)
	return nil
}
