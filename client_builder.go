package hrailab

import (
	"log/slog"

	"github.com/mhpenta/hrailab/ratelimiter"
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDefaultModel sets the default model used when config.Model is empty.
func WithDefaultModel(model Model) ClientOption {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithRegistry makes the client use an existing limiter registry, for
// example one shared with other clients in the process. Quotas reported by
// the provider are then ignored; the registry's quota table applies.
func WithRegistry(registry *ratelimiter.Registry) ClientOption {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithRetryPolicy sets how provider-reported rate limits are retried.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithLimiterMetrics sets the collector for the limiters the client creates.
// It has no effect together with WithRegistry.
func WithLimiterMetrics(mc ratelimiter.MetricsCollector) ClientOption {
	return func(c *Client) {
		c.limiterMetrics = mc
	}
}

// WithTokenEstimator sets the estimator used for the tokens-per-minute budget.
func WithTokenEstimator(estimator TokenEstimator) ClientOption {
	return func(c *Client) {
		if estimator != nil {
			c.tokenEstimator = estimator
		}
	}
}

// NewClient creates a Client with the given provider and options.
//
// Example:
//
//	gen, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	client := hrailab.NewClient(gen)
//
// With options:
//
//	client := hrailab.NewClient(gen,
//	    hrailab.WithLogger(slog.Default()),
//	    hrailab.WithDefaultModel(hrailab.ModelGemini25Flash),
//	)
func NewClient(defaultProvider TextGenerator, opts ...ClientOption) *Client {
	c := newClient()

	for _, opt := range opts {
		opt(c)
	}

	if c.registry == nil {
		c.registry = ratelimiter.NewRegistryWithOpts(ratelimiter.DefaultQuotaTable(), ratelimiter.RegistryOpts{
			Metrics: c.limiterMetrics,
		})
		c.ownsRegistry = true
	}

	models := defaultProvider.Models()
	for i := range models {
		info := &models[i]

		c.providers[info.Provider] = defaultProvider

		c.RegisterModel(Model(info.Name),
			ModelMapping{
				Provider:        info.Provider,
				ActualModelName: info.APIModelName,
			},
			info)
	}

	return c
}
