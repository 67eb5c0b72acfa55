package notify

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipients is returned by adapters when a message has nobody to go to.
var ErrNoRecipients = errors.New("no recipients")

// Message is an outbound notification.
type Message struct {
	Subject string
	Text    string
	HTML    string
	To      []string
}

// Notifier delivers a message over some channel (email, log, ...).
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	if len(m.Recipients()) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("empty subject")
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return errors.New("empty body")
	}
	return nil
}

// Recipients returns the non-blank recipient addresses.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, to := range m.To {
		if to = strings.TrimSpace(to); to != "" {
			out = append(out, to)
		}
	}
	return out
}
