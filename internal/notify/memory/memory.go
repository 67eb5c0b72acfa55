// Package memory provides a Notifier that logs and records messages instead
// of sending them. It is the default provider and the test double.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"spendwatch/internal/notify"
)

type Notifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

var _ notify.Notifier = (*Notifier)(nil)

func New() *Notifier {
	return &Notifier{}
}

// FailWith makes subsequent Notify calls return err. A nil err restores success.
func (n *Notifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *Notifier) Notify(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	n.sent = append(n.sent, msg)

	slog.InfoContext(ctx, "Notification recorded (log provider)",
		"subject", msg.Subject,
		"to", msg.Recipients(),
		"body", msg.Text)
	return nil
}

// Sent returns a copy of all recorded messages.
func (n *Notifier) Sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}
