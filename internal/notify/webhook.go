// Package notify forwards selected session events to a Discord-compatible
// webhook, so whispers received while away and session failures reach the
// user when the console is not in view.
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

	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/util"
)

const requestTimeout = 10 * time.Second

// WebhookNotifier posts embeds to a webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	away   func() bool
	logger zerolog.Logger
}

// NewWebhookNotifier creates a notifier for url. Whispers are only
// forwarded while away reports true; a nil away forwards all of them.
func NewWebhookNotifier(url string, away func() bool) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		away:   away,
		logger: util.ComponentLogger("webhook"),
	}
}

// Register subscribes the notifier to the bus.
func (n *WebhookNotifier) Register(bus *events.EventBus) {
	bus.Subscribe("webhook", n.handle, events.EventWhisperReceived, events.EventSessionClosed)
}

func (n *WebhookNotifier) handle(ctx context.Context, event events.Event) error {
	switch p := event.Payload.(type) {
	case events.MessagePayload:
		if n.away != nil && !n.away() {
			return nil
		}
		return n.Send(ctx, "Whisper from "+p.From, p.Text, events.SeverityInfo)
	case events.SessionClosedPayload:
		if p.Class == "closed" {
			return nil
		}
		return n.Send(ctx, "Session ended ("+p.Class+")", p.Reason, events.SeverityError)
	}
	return nil
}

// Send posts one embed.
func (n *WebhookNotifier) Send(ctx context.Context, title, message string, severity events.Severity) error {
	var color int
	switch severity {
	case events.SeverityError:
		color = 0xFF0000
	case events.SeverityWarning:
		color = 0xFFAA00
	default:
		color = 0x00FF00
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": message,
				"color":       color,
				"timestamp":   time.Now().Format(time.RFC3339),
				"footer": map[string]string{
					"text": "bnetchat",
				},
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	n.logger.Debug().Str("title", title).Msg("webhook notification sent")
	return nil
}
