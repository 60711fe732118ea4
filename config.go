package fetchkit

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Config configures a Client. It is read once at construction and never
// mutated afterwards; every call derives its effective configuration from it.
type Config struct {
	// BaseURL is the base URL prepended to relative endpoints.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Headers are default headers applied to all requests. Call-specific
	// headers win on key collision.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Timeout is the default request timeout. Defaults to 10s. Streaming
	// calls are not subject to it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// Credentials is the default cookie policy. Defaults to same-origin.
	Credentials CredentialsPolicy `yaml:"credentials" mapstructure:"credentials" validate:"oneof=omit same-origin include"`

	// Logger receives debug-level request lifecycle logs. Nil disables logging.
	Logger *zerolog.Logger `yaml:"-" mapstructure:"-"`

	// Metrics collects Prometheus metrics. Nil disables collection.
	Metrics *Metrics `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Credentials == "" {
		c.Credentials = CredentialsSameOrigin
	}
}

// Validate checks that the configuration is valid. Call after ApplyDefaults.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("fetchkit: invalid config: %w", err)
	}
	return nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}
