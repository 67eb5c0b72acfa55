package backend

import (
	"fmt"

	"spendwatch/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// NotifyFromAppConfig extracts the notifier settings from the application config.
func NotifyFromAppConfig(appConfig *config.Config) (NotifyConfig, error) {
	if appConfig == nil {
		return NotifyConfig{}, fmt.Errorf("app config is nil")
	}

	provider := NotifierType(appConfig.NotifyProvider)
	if !provider.IsValid() {
		return NotifyConfig{}, fmt.Errorf("invalid notify provider in config: %s", appConfig.NotifyProvider)
	}

	return NotifyConfig{
		Provider:              provider,
		From:                  appConfig.NotifyFrom,
		MailgunDomain:         appConfig.MailgunDomain,
		MailgunAPIKey:         appConfig.MailgunAPIKey,
		MailgunAPIBase:        appConfig.MailgunAPIBase,
		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:  appConfig.GoogleOAuthTokenJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.AMQPRequired && c.AMQPURL == "" {
		return fmt.Errorf("AMQP URL is required")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
