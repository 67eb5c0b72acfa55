package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendwatch/internal/amqp"
	"spendwatch/internal/services"
)

// WatchdogWorker runs the spending watchdog in response to AMQP messages.
type WatchdogWorker struct {
	checker services.Checker
	now     func() time.Time

	mu             sync.Mutex
	lastCheckStart time.Time
}

func NewWatchdogWorker(checker services.Checker) *WatchdogWorker {
	return &WatchdogWorker{checker: checker, now: time.Now}
}

// HandleSpendingCheck runs the watchdog for one message. Messages published
// before the start of the last successful check are already covered by it
// and are skipped. A store failure is returned so the message is requeued.
func (w *WatchdogWorker) HandleSpendingCheck(ctx context.Context, msg *amqp.SpendingCheckMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastCheckStart.IsZero() && msg.Timestamp.Before(w.lastCheckStart) {
		slog.DebugContext(ctx, "Spending check already covered by a later run",
			"reason", msg.Reason,
			"expense_id", msg.ExpenseID)
		return nil
	}

	started := w.now()
	report, err := w.checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("watchdog check: %w", err)
	}
	w.lastCheckStart = started

	slog.InfoContext(ctx, "Watchdog check completed",
		"reason", msg.Reason,
		"expense_id", msg.ExpenseID,
		"period", report.Period.Key(),
		"total", report.Total.String(),
		"exceeded", report.Exceeded,
		"notified", report.Notified)
	return nil
}
