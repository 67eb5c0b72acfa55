package cli

import (
	"spendwatch/internal/config"
	"spendwatch/internal/notify"
	"spendwatch/internal/services"
	"spendwatch/internal/storage"
)

// NewWatchdog builds the spending watchdog over store, alerting through
// notifier.
func NewWatchdog(cfg *config.Config, store storage.Store, notifier notify.Notifier) *services.Watchdog {
	return services.NewWatchdog(
		services.NewSpendAggregator(store),
		notifier,
		store,
		services.WatchdogConfig{
			Limit:         cfg.SpendingLimit,
			Recipients:    cfg.NotifyTo,
			Location:      cfg.Location(),
			OncePerPeriod: cfg.OncePerPeriod,
		},
	)
}
