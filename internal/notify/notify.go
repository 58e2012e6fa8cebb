// Package notify delivers operator alerts for trade events over Telegram and
// Discord. Delivery is best-effort: the trading loop never blocks or aborts on
// a failed alert.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/pacificabot/internal/config"
)

// Sender is a single delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Dispatcher fans an event out to every configured channel, filtered by the
// operator's event allow-list. It satisfies the trading loop's Notifier
// interface.
type Dispatcher struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// New builds a Dispatcher over the given senders. An empty events list allows
// every event type.
func New(senders []Sender, events []string, logger *slog.Logger) *Dispatcher {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Dispatcher{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notify")),
	}
}

// FromConfig builds a Dispatcher from the notification config, wiring up one
// sender per configured channel. It returns nil when no channel is configured,
// which disables alerting entirely.
func FromConfig(cfg config.NotifyConfig, logger *slog.Logger) *Dispatcher {
	var senders []Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, NewTelegram(cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, NewDiscord(cfg.DiscordWebhookURL))
	}
	if len(senders) == 0 {
		return nil
	}
	return New(senders, cfg.Events, logger)
}

// Notify delivers the event to every sender when its type passes the filter.
// Individual sender failures are collected so one dead channel never starves
// the others.
func (d *Dispatcher) Notify(ctx context.Context, event, title, message string) error {
	if len(d.allowed) > 0 && !d.allowed[event] {
		d.logger.Debug("event filtered out", slog.String("event", event))
		return nil
	}

	var errs []string
	for _, s := range d.senders {
		if err := s.Send(ctx, title, message); err != nil {
			d.logger.Error("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		d.logger.Debug("notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON posts a JSON payload and treats any non-2xx status as an error,
// including a bounded excerpt of the response body.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(excerpt))
	}
	return nil
}
