package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Telegram delivers alerts through the Telegram Bot API.
type Telegram struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegram creates a Telegram sender for the given bot token and chat ID.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{token: token, chatID: chatID, client: newHTTPClient()}
}

// Send posts the alert via the sendMessage endpoint, title rendered bold.
func (t *Telegram) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", title, message),
		"parse_mode": "Markdown",
	}
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Name implements Sender.
func (t *Telegram) Name() string { return "telegram" }
