// Package config loads client settings from the environment. A .env file in
// the working directory is read first when present; real environment
// variables win over it.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

// Prefix is prepended to every variable name
const Prefix = "DISHDASH_"

// Config holds client settings
type Config struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.dishdash.app"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxWait   time.Duration `env:"RETRY_MAX_WAIT" envDefault:"30s"`

	// ExemptEndpoints replaces the default list of endpoints that never carry a token
	ExemptEndpoints []string `env:"EXEMPT_ENDPOINTS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`

	// KeyringBackend forces one keyring backend, e.g. "file" on headless machines
	KeyringBackend  string `env:"KEYRING_BACKEND"`
	KeyringDir      string `env:"KEYRING_DIR"`
	KeyringPassword string `env:"KEYRING_PASSWORD"`

	DeviceID string `env:"DEVICE_ID"`
}

// Load reads files (default ".env") into the process environment and parses it
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read %s", f)
		}
	}
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses settings from environ instead of the process environment
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.MaxRetries < 0 {
		return errors.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxWait < 0 {
		return errors.New("retry delays must not be negative")
	}
	return nil
}

// RetryConfig returns the retry policy
func (c *Config) RetryConfig() *types.RetryConfig {
	return &types.RetryConfig{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.RetryBaseDelay,
		MaxWait:    c.RetryMaxWait,
	}
}

// Exempt returns the configured exempt endpoints, or the defaults
func (c *Config) Exempt() []string {
	if len(c.ExemptEndpoints) == 0 {
		return types.DefaultExemptEndpoints()
	}
	return c.ExemptEndpoints
}
