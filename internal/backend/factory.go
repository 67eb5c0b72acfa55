package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwatch/internal/amqp"
	"spendwatch/internal/notify"
	"spendwatch/internal/notify/gmail"
	"spendwatch/internal/notify/mailgun"
	notifymem "spendwatch/internal/notify/memory"
	"spendwatch/internal/storage"
	"spendwatch/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store storage.Store
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	result := &BackendResult{Store: store}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		switch {
		case err != nil && config.AMQPRequired:
			store.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without spending checks", "error", err)
		default:
			result.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.AMQP != nil {
			if err := result.AMQP.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		return errors.Join(errs...)
	}

	return result, nil
}

// CreateNotifier implements Factory.CreateNotifier
func (f *DefaultFactory) CreateNotifier(ctx context.Context, config NotifyConfig) (notify.Notifier, error) {
	switch config.Provider {
	case LogNotifier, "":
		f.logger.InfoContext(ctx, "Using log notifier")
		return notifymem.New(), nil
	case GmailNotifier:
		client, err := gmail.New(ctx, gmail.Config{
			From:            config.From,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gmail notifier: %w", err)
		}
		return client, nil
	case MailgunNotifier:
		client, err := mailgun.New(mailgun.Config{
			Domain:  config.MailgunDomain,
			APIKey:  config.MailgunAPIKey,
			APIBase: config.MailgunAPIBase,
			From:    config.From,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Mailgun notifier: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported notify provider: %s", config.Provider)
	}
}
