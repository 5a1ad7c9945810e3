// Package config loads rpcware settings from files, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hedeqiang/rpcware/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. RPCWARE_ENDPOINT.
const EnvPrefix = "RPCWARE"

// Config is the top-level configuration.
type Config struct {
	// Endpoint is the node URL; http(s) and ws(s) schemes are supported.
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`

	// Timeout bounds each HTTP round trip. Zero disables it.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// Headers are sent with every HTTP request.
	Headers map[string]string `mapstructure:"headers"`

	// BearerToken, when set, is sent as "Authorization: Bearer <token>".
	BearerToken string `mapstructure:"bearer_token"`

	Log        logging.Config   `mapstructure:"log"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// MiddlewareConfig selects the bundled middleware attached by rpcware.Dial.
type MiddlewareConfig struct {
	RequestID        bool          `mapstructure:"request_id"`
	Tracing          bool          `mapstructure:"tracing"`
	Logging          bool          `mapstructure:"logging"`
	Metrics          bool          `mapstructure:"metrics"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gte=0"`
	AllowMethods     []string      `mapstructure:"allow_methods"`

	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RateLimitConfig configures the token bucket limiter.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required_if=Enabled true,gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
	// Wait blocks callers until a token is free instead of rejecting them.
	Wait bool `mapstructure:"wait"`
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Threshold    int           `mapstructure:"threshold" validate:"required_if=Enabled true,gte=0"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" validate:"gte=0"`
}

// Default returns a Config with defaults for everything but Endpoint.
func Default() Config {
	return Config{
		Timeout: 30 * time.Second,
		Log: logging.Config{
			Level:  "info",
			Format: logging.FormatJSON,
			Output: "stderr",
		},
		Middleware: MiddlewareConfig{
			RequestID:        true,
			Logging:          true,
			MetricsNamespace: "rpcware",
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				Burst:             10,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold:    5,
				ResetTimeout: 30 * time.Second,
			},
		},
	}
}

// LoadOptions points Load at explicit files.
type LoadOptions struct {
	// ConfigFile is a YAML, TOML or JSON file; its extension selects the format.
	// Empty means defaults plus environment only.
	ConfigFile string

	// EnvFile is loaded into the process environment before overrides are read.
	// Empty means ".env" if it exists.
	EnvFile string

	// Overrides take precedence over every other source, keyed like the
	// file, e.g. "middleware.timeout".
	Overrides map[string]any
}

// Load builds a Config from defaults, the config file, RPCWARE_* environment
// variables and opts.Overrides, in increasing order of precedence, then
// validates it.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: validate: %s failed on %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("bearer_token", d.BearerToken)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)

	m := d.Middleware
	v.SetDefault("middleware.request_id", m.RequestID)
	v.SetDefault("middleware.tracing", m.Tracing)
	v.SetDefault("middleware.logging", m.Logging)
	v.SetDefault("middleware.metrics", m.Metrics)
	v.SetDefault("middleware.metrics_namespace", m.MetricsNamespace)
	v.SetDefault("middleware.timeout", m.Timeout)
	v.SetDefault("middleware.allow_methods", m.AllowMethods)
	v.SetDefault("middleware.rate_limit.enabled", m.RateLimit.Enabled)
	v.SetDefault("middleware.rate_limit.requests_per_second", m.RateLimit.RequestsPerSecond)
	v.SetDefault("middleware.rate_limit.burst", m.RateLimit.Burst)
	v.SetDefault("middleware.rate_limit.wait", m.RateLimit.Wait)
	v.SetDefault("middleware.circuit_breaker.enabled", m.CircuitBreaker.Enabled)
	v.SetDefault("middleware.circuit_breaker.threshold", m.CircuitBreaker.Threshold)
	v.SetDefault("middleware.circuit_breaker.reset_timeout", m.CircuitBreaker.ResetTimeout)
}
