// Package config loads hrailab settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mhpenta/hrailab"
	"github.com/mhpenta/hrailab/ratelimiter"
)

// EnvPrefix prefixes every environment override, e.g. HRAILAB_RATE_LIMIT_DEFAULT_RPM.
const EnvPrefix = "HRAILAB"

// keyDelimiter separates nested keys. Model names contain dots, so viper's
// default "." cannot be used for the quotas map.
const keyDelimiter = "::"

// Config holds all configuration for hrailab.
type Config struct {
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Log       LogConfig       `mapstructure:"log"`
}

// GeminiConfig holds provider settings.
type GeminiConfig struct {
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	BaseURL      string `mapstructure:"base_url"`
}

// RateLimitConfig holds limiter settings.
type RateLimitConfig struct {
	// DefaultRPM applies to models missing from every quota source.
	DefaultRPM int `mapstructure:"default_rpm"`

	// QuotasFile is an optional YAML quota table, see ratelimiter.LoadQuotaTable.
	QuotasFile string `mapstructure:"quotas_file"`

	// Quotas are inline overrides; they win over QuotasFile.
	Quotas map[string]ratelimiter.Quota `mapstructure:"quotas"`

	WaitOnRateLimit bool          `mapstructure:"wait_on_rate_limit"`
	MaxWait         time.Duration `mapstructure:"max_wait"`
}

// RetryConfig mirrors hrailab.RetryPolicy.
type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

func key(parts ...string) string {
	return strings.Join(parts, keyDelimiter)
}

func setDefaults(v *viper.Viper) {
	retry := hrailab.DefaultRetryPolicy()

	v.SetDefault(key("gemini", "api_key"), "")
	v.SetDefault(key("gemini", "default_model"), string(hrailab.ModelDefault))
	v.SetDefault(key("gemini", "base_url"), "")

	v.SetDefault(key("rate_limit", "default_rpm"), ratelimiter.DefaultQuota.RequestsPerMinute)
	v.SetDefault(key("rate_limit", "quotas_file"), "")
	v.SetDefault(key("rate_limit", "wait_on_rate_limit"), true)
	v.SetDefault(key("rate_limit", "max_wait"), 2*time.Minute)

	v.SetDefault(key("retry", "max_retries"), retry.MaxRetries)
	v.SetDefault(key("retry", "initial_interval"), retry.InitialInterval)
	v.SetDefault(key("retry", "max_interval"), retry.MaxInterval)

	v.SetDefault(key("log", "level"), "info")
	v.SetDefault(key("log", "format"), "text")
}

// Load reads configuration from path, or from hrailab.yaml in the working
// directory when path is empty. A missing default file is not an error.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	// The SDK's own variables are honoured as fallbacks.
	if err := v.BindEnv(key("gemini", "api_key"), EnvPrefix+"_GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("hrailab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.RateLimit.DefaultRPM <= 0 {
		return fmt.Errorf("rate_limit.default_rpm: %w: must be positive, got %d", ratelimiter.ErrInvalidQuota, c.RateLimit.DefaultRPM)
	}
	if c.RateLimit.MaxWait < 0 {
		return fmt.Errorf("rate_limit.max_wait: %w", hrailab.ErrInvalidMaxWait)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.QuotaTable(); err != nil {
		return err
	}
	return nil
}

// QuotaTable merges the built-in table, QuotasFile and inline quotas, in
// that order, and validates the result.
func (c *Config) QuotaTable() (ratelimiter.QuotaTable, error) {
	table := ratelimiter.DefaultQuotaTable()

	if c.RateLimit.QuotasFile != "" {
		fromFile, err := ratelimiter.LoadQuotaTableFile(c.RateLimit.QuotasFile)
		if err != nil {
			return nil, fmt.Errorf("rate_limit.quotas_file: %w", err)
		}
		table = table.Merge(fromFile)
	}

	table = table.Merge(c.RateLimit.Quotas)
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("rate_limit.quotas: %w", err)
	}
	return table, nil
}

// DefaultQuota is the quota for models missing from QuotaTable.
func (c *Config) DefaultQuota() ratelimiter.Quota {
	q := ratelimiter.DefaultQuota
	if c.RateLimit.DefaultRPM > 0 {
		q.RequestsPerMinute = c.RateLimit.DefaultRPM
	}
	return q
}

// NewRegistry builds a limiter registry from the configured quotas.
func (c *Config) NewRegistry(metrics ratelimiter.MetricsCollector) (*ratelimiter.Registry, error) {
	table, err := c.QuotaTable()
	if err != nil {
		return nil, err
	}
	return ratelimiter.NewRegistryWithOpts(table, ratelimiter.RegistryOpts{
		DefaultQuota: c.DefaultQuota(),
		Metrics:      metrics,
	}), nil
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() hrailab.RetryPolicy {
	return hrailab.RetryPolicy{
		MaxRetries:      c.Retry.MaxRetries,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
	}
}

// ProviderConfig returns the Gemini provider settings.
func (c *Config) ProviderConfig() *hrailab.ProviderConfig {
	return &hrailab.ProviderConfig{
		Provider: hrailab.ProviderGeminiAPI,
		APIKey:   c.Gemini.APIKey,
		BaseURL:  c.Gemini.BaseURL,
	}
}

// GenerateConfig returns per-request defaults carrying the configured model
// and waiting behaviour.
func (c *Config) GenerateConfig() *hrailab.GenerateConfig {
	gc := hrailab.DefaultConfigWithModel(hrailab.Model(c.Gemini.DefaultModel))
	gc.WaitOnRateLimit = c.RateLimit.WaitOnRateLimit
	gc.MaxWaitDuration = c.RateLimit.MaxWait
	return gc
}

// ClientOptions returns the client options implied by the configuration.
// The registry is built here so quota overrides apply to every model.
func (c *Config) ClientOptions(metrics ratelimiter.MetricsCollector) ([]hrailab.ClientOption, error) {
	registry, err := c.NewRegistry(metrics)
	if err != nil {
		return nil, err
	}
	return []hrailab.ClientOption{
		hrailab.WithRegistry(registry),
		hrailab.WithRetryPolicy(c.RetryPolicy()),
		hrailab.WithDefaultModel(hrailab.Model(c.Gemini.DefaultModel)),
	}, nil
}
