package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwatch/internal/core"
	"spendwatch/internal/metrics"
	"spendwatch/internal/notify"
	"spendwatch/internal/storage"
)

// SpendAggregator totals expense amounts over a period.
type SpendAggregator struct {
	summer storage.ExpenseSummer
}

func NewSpendAggregator(summer storage.ExpenseSummer) *SpendAggregator {
	return &SpendAggregator{summer: summer}
}

// Total returns the sum of all expenses created within p, both bounds
// inclusive. Store failures are wrapped in ErrStoreQuery.
func (a *SpendAggregator) Total(ctx context.Context, p core.Period) (core.Money, error) {
	total, err := a.summer.SumExpensesBetween(ctx, p.Start, p.End)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: sum expenses for %s: %w", ErrStoreQuery, p.Key(), err)
	}
	return total, nil
}

// WatchdogConfig configures the threshold check.
type WatchdogConfig struct {
	Limit      core.Money
	Recipients []string
	// Location decides where month boundaries fall. Nil means time.Local.
	Location *time.Location
	// OncePerPeriod suppresses repeat notifications within the same month.
	OncePerPeriod bool
}

// Report is the outcome of one watchdog check.
type Report struct {
	Period          core.Period
	Total           core.Money
	Limit           core.Money
	Exceeded        bool
	Notified        bool
	AlreadyNotified bool
	// NotifyErr holds a delivery failure. It is never returned from Check.
	NotifyErr error
}

// Watchdog compares the current month's spend against a limit and sends a
// notification when the limit is strictly exceeded.
type Watchdog struct {
	aggregator *SpendAggregator
	notifier   notify.Notifier
	ledger     storage.NotificationLedger
	cfg        WatchdogConfig
	now        func() time.Time
}

// NewWatchdog builds a watchdog. ledger is only consulted when
// cfg.OncePerPeriod is set and may be nil otherwise.
func NewWatchdog(aggregator *SpendAggregator, notifier notify.Notifier, ledger storage.NotificationLedger, cfg WatchdogConfig) *Watchdog {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Watchdog{
		aggregator: aggregator,
		notifier:   notifier,
		ledger:     ledger,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (w *Watchdog) WithClock(now func() time.Time) *Watchdog {
	w.now = now
	return w
}

func (w *Watchdog) Limit() core.Money { return w.cfg.Limit }

// CurrentPeriod resolves the month containing the current instant.
func (w *Watchdog) CurrentPeriod() core.Period {
	return core.MonthPeriod(w.now().In(w.cfg.Location))
}

// Summary is a read-only view of the current period against the limit.
type Summary struct {
	Period    core.Period
	Total     core.Money
	Limit     core.Money
	Remaining core.Money
	Exceeded  bool
}

// Summary totals the current period without notifying anyone. Remaining is
// negative once the limit has been passed.
func (w *Watchdog) Summary(ctx context.Context) (Summary, error) {
	period := w.CurrentPeriod()
	total, err := w.aggregator.Total(ctx, period)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Period:    period,
		Total:     total,
		Limit:     w.cfg.Limit,
		Remaining: w.cfg.Limit.Sub(total),
		Exceeded:  total.GreaterThan(w.cfg.Limit),
	}, nil
}

// Check runs one evaluation. Only store failures are returned; a failed
// notification is logged and reported in Report.NotifyErr.
func (w *Watchdog) Check(ctx context.Context) (Report, error) {
	period := w.CurrentPeriod()

	total, err := w.aggregator.Total(ctx, period)
	if err != nil {
		metrics.WatchdogRunsTotal.WithLabelValues("store_error").Inc()
		slog.ErrorContext(ctx, "Watchdog aggregation failed", "period", period.Key(), "error", err)
		return Report{}, err
	}
	metrics.WatchdogPeriodTotal.Set(total.Decimal().InexactFloat64())

	report := Report{
		Period:   period,
		Total:    total,
		Limit:    w.cfg.Limit,
		Exceeded: total.GreaterThan(w.cfg.Limit),
	}

	if !report.Exceeded {
		metrics.WatchdogRunsTotal.WithLabelValues("under_limit").Inc()
		slog.DebugContext(ctx, "Spending under limit",
			"period", period.Key(),
			"total", total.String(),
			"limit", w.cfg.Limit.String())
		return report, nil
	}
	metrics.WatchdogRunsTotal.WithLabelValues("exceeded").Inc()

	if w.cfg.OncePerPeriod && w.alreadyNotified(ctx, period) {
		report.AlreadyNotified = true
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		slog.InfoContext(ctx, "Spending limit exceeded, period already notified",
			"period", period.Key(),
			"total", total.String())
		return report, nil
	}

	if err := w.notifier.Notify(ctx, w.buildMessage(period, total)); err != nil {
		report.NotifyErr = err
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		slog.ErrorContext(ctx, "Failed to send spending limit notification",
			"period", period.Key(),
			"total", total.String(),
			"error", err)
		return report, nil
	}

	report.Notified = true
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	slog.InfoContext(ctx, "Spending limit exceeded, notification sent",
		"period", period.Key(),
		"total", total.String(),
		"limit", w.cfg.Limit.String())

	if w.cfg.OncePerPeriod && w.ledger != nil {
		if err := w.ledger.MarkPeriodNotified(ctx, period, total, w.now()); err != nil {
			slog.WarnContext(ctx, "Failed to record notified period", "period", period.Key(), "error", err)
		}
	}
	return report, nil
}

// alreadyNotified treats ledger errors as "not yet notified".
func (w *Watchdog) alreadyNotified(ctx context.Context, period core.Period) bool {
	if w.ledger == nil {
		return false
	}
	ok, err := w.ledger.IsPeriodNotified(ctx, period)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read notification ledger", "period", period.Key(), "error", err)
		return false
	}
	return ok
}

func (w *Watchdog) buildMessage(period core.Period, total core.Money) notify.Message {
	month := period.Start.Format("January 2006")
	over := total.Sub(w.cfg.Limit)
	return notify.Message{
		Subject: fmt.Sprintf("Spending limit exceeded for %s", month),
		Text: fmt.Sprintf("You have spent %s in %s, which is %s over your monthly limit of %s.",
			total.StringFixed(), month, over.StringFixed(), w.cfg.Limit.StringFixed()),
		HTML: fmt.Sprintf("<p><strong>You have exceeded your monthly spending limit.</strong></p>"+
			"<p>Spent in %s: <strong>%s</strong><br>Limit: %s<br>Over by: %s</p>",
			month, total.StringFixed(), w.cfg.Limit.StringFixed(), over.StringFixed()),
		To: w.cfg.Recipients,
	}
}
