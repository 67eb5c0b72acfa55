// Package mailgun sends notifications through the Mailgun HTTP API.
package mailgun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"spendwatch/internal/notify"
)

type Client struct {
	mg   mg.Mailgun
	from string
}

var _ notify.Notifier = (*Client)(nil)

type Config struct {
	Domain  string
	APIKey  string
	APIBase string // optional, e.g. the EU endpoint
	From    string
}

func New(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.Domain) == "" {
		missing = append(missing, "domain")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(cfg.From) == "" {
		missing = append(missing, "sender")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("mailgun configuration incomplete: missing %s", strings.Join(missing, ", "))
	}

	client := mg.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		client.SetAPIBase(cfg.APIBase)
	}

	slog.Info("Mailgun notifier initialized", "domain", cfg.Domain)
	return &Client{mg: client, from: cfg.From}, nil
}

// Notify implements notify.Notifier.
func (c *Client) Notify(ctx context.Context, msg notify.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if c.mg == nil {
		return errors.New("mailgun client not initialized")
	}

	m := c.mg.NewMessage(c.from, msg.Subject, msg.Text, msg.Recipients()...)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}
	m.AddTag("spending-watchdog")

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, id, err := c.mg.Send(ctx, m)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to send notification via Mailgun",
			"error", err,
			"to", msg.Recipients(),
			"mailgun_resp", resp)
		return fmt.Errorf("mailgun send: %w", err)
	}

	slog.InfoContext(ctx, "Notification sent via Mailgun",
		"id", id,
		"to", msg.Recipients(),
		"mailgun_resp", resp)
	return nil
}
