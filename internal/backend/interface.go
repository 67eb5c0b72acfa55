package backend

import (
	"context"

	"spendwatch/internal/amqp"
	"spendwatch/internal/notify"
	"spendwatch/internal/services"
	"spendwatch/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store, the optional AMQP client and a cleanup
// function releasing both.
type BackendResult struct {
	Store   storage.Store
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the AMQP client as a CheckPublisher, or a nil interface
// when messaging is disabled.
func (r *BackendResult) Publisher() services.CheckPublisher {
	if r == nil || r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store and, if configured, the AMQP client.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateNotifier builds the notifier for the configured provider.
	CreateNotifier(ctx context.Context, config NotifyConfig) (notify.Notifier, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP is optional for every backend type
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// AMQPRequired makes a failed broker connection fatal (worker) instead
	// of a warning (API server).
	AMQPRequired bool
}

// NotifyConfig selects and configures the notification channel.
type NotifyConfig struct {
	Provider NotifierType
	From     string

	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string

	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// NotifierType names a notification provider.
type NotifierType string

const (
	LogNotifier     NotifierType = "log"
	GmailNotifier   NotifierType = "gmail"
	MailgunNotifier NotifierType = "mailgun"
)

func (nt NotifierType) IsValid() bool {
	switch nt {
	case LogNotifier, GmailNotifier, MailgunNotifier:
		return true
	default:
		return false
	}
}
