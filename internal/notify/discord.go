package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Discord delivers alerts through a Discord webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord creates a Discord sender for the given webhook URL.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{webhookURL: webhookURL, client: newHTTPClient()}
}

// Send posts the alert to the webhook, title rendered bold.
func (d *Discord) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	}
	if err := postJSON(ctx, d.client, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name implements Sender.
func (d *Discord) Name() string { return "discord" }
