package dishdash

import (
	"io"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/eshaffer321/dishdash-go/internal/config"
	"github.com/eshaffer321/dishdash-go/internal/logging"
	"github.com/eshaffer321/dishdash-go/internal/session"
)

// Config holds settings read from DISHDASH_* environment variables
type Config = config.Config

// LoadConfig reads .env files (default ".env") and the environment
func LoadConfig(files ...string) (*Config, error) {
	return config.Load(files...)
}

// NewLogger returns a text logger writing to w at the named level
func NewLogger(w io.Writer, level string) Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logging.ParseLevel(level),
	})))
}

// OptionsFromConfig builds client options from cfg and opens the keyring it names
func OptionsFromConfig(cfg *Config, logger Logger) (*ClientOptions, error) {
	ring, err := session.OpenKeyring(session.KeyringOptions{
		Backend:  cfg.KeyringBackend,
		Dir:      cfg.KeyringDir,
		Password: cfg.KeyringPassword,
	})
	if err != nil {
		return nil, err
	}

	opts := &ClientOptions{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		Keyring:         ring,
		DeviceID:        cfg.DeviceID,
		ExemptEndpoints: cfg.Exempt(),
		Logger:          logger,
		RetryConfig:     cfg.RetryConfig(),
	}
	if cfg.SentryDSN != "" {
		opts.SentryDSN = cfg.SentryDSN
		opts.SentryOptions = &sentry.ClientOptions{
			Environment: cfg.SentryEnvironment,
			Release:     UserAgent,
		}
	}
	return opts, nil
}
