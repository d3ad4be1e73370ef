package hrailab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/mhpenta/hrailab/ratelimiter"
)

// Provider represents a model provider/backend.
type Provider string

const (
	ProviderGeminiAPI Provider = "gemini"
)

// ProviderConfig configures a specific provider.
type ProviderConfig struct {
	// Provider type
	Provider Provider

	// APIKey for authentication
	APIKey string

	// BaseURL for custom endpoints (optional)
	BaseURL string
}

// ModelMapping maps a model identifier to its provider and actual model name.
type ModelMapping struct {
	Provider        Provider
	ActualModelName string
}

// Client implements TextGenerator, routing requests to the appropriate
// provider based on the Model in GenerateConfig and throttling every call
// through the per-model rate limiter.
type Client struct {
	// Model to provider mapping
	modelMappings map[Model]ModelMapping

	// Provider instances
	providers map[Provider]TextGenerator

	// Default model to use when config.Model is empty
	defaultModel Model

	// Request limiters, keyed by API model name
	registry     *ratelimiter.Registry
	ownsRegistry bool

	// Informational tokens-per-minute budgets, keyed by API model name
	tokenBudgets map[string]*rate.Limiter

	// Model info (per model)
	modelInfo map[Model]*ModelInfo

	logger *slog.Logger

	tokenEstimator TokenEstimator

	retryPolicy RetryPolicy
	retryTimer  backoff.Timer // nil uses the system clock

	limiterMetrics ratelimiter.MetricsCollector

	mu sync.RWMutex
}

// Ensure Client implements TextGenerator.
var _ TextGenerator = (*Client)(nil)

func newClient() *Client {
	return &Client{
		logger:         slog.Default(),
		modelMappings:  make(map[Model]ModelMapping),
		providers:      make(map[Provider]TextGenerator),
		tokenBudgets:   make(map[string]*rate.Limiter),
		modelInfo:      make(map[Model]*ModelInfo),
		tokenEstimator: NewSimpleTokenEstimator(),
		retryPolicy:    DefaultRetryPolicy(),
		defaultModel:   ModelDefault,
	}
}

// RegisterModel registers a model with full info (including rate limits).
// Unless a registry was injected with WithRegistry, the model's request quota
// is added to the client's quota table. A limiter that already exists for the
// API model keeps its quota; the tokens-per-minute budget is rebuilt.
func (c *Client) RegisterModel(model Model, mapping ModelMapping, info *ModelInfo) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modelMappings[model] = mapping
	c.modelInfo[model] = info

	if c.ownsRegistry && info != nil && info.RateLimits.RequestsPerMinute > 0 {
		if err := c.registry.SetQuota(mapping.ActualModelName, info.RateLimits); err != nil {
			c.logger.Warn("ignoring invalid model quota",
				"model", string(model),
				"error", err.Error(),
			)
		} else {
			// rebuilt from the new quota on next use
			delete(c.tokenBudgets, ratelimiter.NormalizeModel(mapping.ActualModelName))
		}
	}

	return c
}

// RateLimiter returns the request limiter shared by every call to the model.
func (c *Client) RateLimiter(model Model) (*ratelimiter.RateLimiter, error) {
	return c.registry.Get(c.apiModelName(model))
}

// SetRateLimiter replaces the request limiter for a model.
func (c *Client) SetRateLimiter(model Model, limiter *ratelimiter.RateLimiter) *Client {
	c.registry.Set(c.apiModelName(model), limiter)
	return c
}

// Registry returns the registry holding the client's request limiters.
func (c *Client) Registry() *ratelimiter.Registry {
	return c.registry
}

// SetDefaultModel sets the default model used when config.Model is empty.
func (c *Client) SetDefaultModel(model Model) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.defaultModel = model
	return c
}

// SetLogger sets a structured logger for the client.
// When set, the client logs generation requests, completions, errors, and rate limiting events.
func (c *Client) SetLogger(logger *slog.Logger) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger = logger
	return c
}

// Generate produces a completion for a prompt.
//
// The model's limiter is consulted before the provider is called: with
// WaitOnRateLimit the call blocks up to MaxWaitDuration, otherwise a
// RateLimitError is returned immediately. Rate limits reported by the provider
// are retried according to the retry policy, taking a new token each time.
func (c *Client) Generate(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	model := c.resolveModel(config)
	requestID := uuid.NewString()
	logger := c.getLogger().With(
		"request_id", requestID,
		"model", string(model),
	)
	start := time.Now()

	logger.Debug("starting generation",
		"prompt_length", len(prompt),
		"system_prompt_length", len(config.SystemPrompt),
	)

	gen, actualConfig, err := c.getGeneratorForConfig(config)
	if err != nil {
		logger.Error("failed to get generator",
			"error", err.Error(),
		)
		return nil, err
	}
	apiModel := actualConfig.Model.String()

	limiter, err := c.registry.Get(apiModel)
	if err != nil {
		logger.Error("failed to get rate limiter",
			"error", err.Error(),
		)
		return nil, err
	}

	c.chargeTokenBudget(logger, apiModel, estimateRequestTokens(c.tokenEstimator, config, prompt))

	notify := func(err error, next time.Duration) {
		logger.Warn("provider rate limit hit, retrying",
			"retry_in_ms", next.Milliseconds(),
			"error", err.Error(),
		)
	}

	var result *GenerateResult
	err = doWithRetry(ctx, c.retryPolicy, notify, c.retryTimer, func(ctx context.Context) error {
		if err := c.checkRateLimit(ctx, model, limiter, config); err != nil {
			return backoff.Permanent(err)
		}
		res, err := gen.Generate(ctx, prompt, actualConfig)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		if IsRateLimitError(err) {
			logger.Warn("rate limit hit",
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			logger.Error("generation failed",
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		}
		return nil, err
	}

	if result == nil {
		result = &GenerateResult{}
	}
	result.RequestID = requestID
	if result.Model == "" {
		result.Model = apiModel
	}

	// Log success with usage metadata
	logAttrs := []any{
		"duration_ms", duration.Milliseconds(),
		"response_length", len(result.Text),
	}
	if result.UsageMetadata != nil {
		logAttrs = append(logAttrs,
			"prompt_tokens", result.UsageMetadata.PromptTokens,
			"response_tokens", result.UsageMetadata.CandidatesTokens,
			"total_tokens", result.UsageMetadata.TotalTokens,
		)
	}
	logger.Info("generation completed", logAttrs...)

	return result, nil
}

// GenerateBatch runs Generate for every prompt with at most concurrency calls
// in flight. All calls share the model's limiter. Items are returned in input
// order, each carrying its own result or error.
func (c *Client) GenerateBatch(ctx context.Context, prompts []string, config *GenerateConfig, concurrency int) []BatchItem {
	if concurrency <= 0 {
		concurrency = 1
	}

	items := make([]BatchItem, len(prompts))
	p := pool.New().WithMaxGoroutines(concurrency)
	for i, prompt := range prompts {
		p.Go(func() {
			result, err := c.Generate(ctx, prompt, config)
			items[i] = BatchItem{
				Index:  i,
				Prompt: prompt,
				Result: result,
				Err:    err,
			}
		})
	}
	p.Wait()

	return items
}

// Models returns all registered model definitions, sorted by name.
func (c *Client) Models() []ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]ModelInfo, 0, len(c.modelInfo))
	for _, info := range c.modelInfo {
		if info != nil {
			models = append(models, *info)
		}
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})
	return models
}

// Close releases all provider resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for provider, gen := range c.providers {
		if err := gen.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", provider, err))
		}
	}
	c.providers = make(map[Provider]TextGenerator)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ListModels returns all registered models, sorted.
func (c *Client) ListModels() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]Model, 0, len(c.modelMappings))
	for model := range c.modelMappings {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i] < models[j]
	})
	return models
}

// GetModelProvider returns the provider for a model.
func (c *Client) GetModelProvider(model Model) (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mapping, ok := c.modelMappings[model]
	if !ok {
		return "", false
	}
	return mapping.Provider, true
}

// GetModelInfo returns model information for a specific model.
func (c *Client) GetModelInfo(model Model) (*ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.modelInfo[model]
	return info, ok
}

// checkRateLimit takes one request token for the model, optionally waiting.
func (c *Client) checkRateLimit(ctx context.Context, model Model, limiter *ratelimiter.RateLimiter, config *GenerateConfig) error {
	if config.WaitOnRateLimit {
		ok, err := limiter.Acquire(ctx, config.MaxWaitDuration)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	} else if limiter.TryAcquire() {
		return nil
	}

	return &RateLimitError{
		RetryAfter: limiter.TimeUntilAvailable(),
		LimitType:  "requests",
		Model:      string(model),
	}
}

// chargeTokenBudget records estimated input tokens against the model's
// tokens-per-minute quota. Going over budget is only logged.
func (c *Client) chargeTokenBudget(logger *slog.Logger, apiModel string, tokens int) {
	if tokens <= 0 {
		return
	}

	budget := c.tokenBudget(apiModel)
	if budget == nil {
		return
	}

	if !budget.AllowN(time.Now(), tokens) {
		logger.Warn("tokens per minute budget exceeded",
			"estimated_tokens", tokens,
			"tokens_per_minute", budget.Burst(),
		)
	}
}

// tokenBudget returns the cached budget for a model, nil when the quota has
// no tokens-per-minute limit. Changing a quota directly on the registry does
// not reset a cached budget; RegisterModel does.
func (c *Client) tokenBudget(apiModel string) *rate.Limiter {
	key := ratelimiter.NormalizeModel(apiModel)

	c.mu.RLock()
	budget, ok := c.tokenBudgets[key]
	c.mu.RUnlock()
	if ok {
		return budget
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if budget, ok = c.tokenBudgets[key]; ok {
		return budget
	}

	tpm := c.registry.Quota(key).TokensPerMinute
	if tpm > 0 {
		budget = rate.NewLimiter(rate.Limit(float64(tpm)/60), tpm)
	}
	c.tokenBudgets[key] = budget
	return budget
}

// resolveModel determines the actual model to use.
func (c *Client) resolveModel(config *GenerateConfig) Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if config != nil && config.Model != "" && config.Model != ModelDefault {
		return config.Model
	}
	return c.defaultModel
}

// apiModelName returns the API name the model's limiter is registered under.
func (c *Client) apiModelName(model Model) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if mapping, ok := c.modelMappings[model]; ok && mapping.ActualModelName != "" {
		return mapping.ActualModelName
	}
	return string(model)
}

// getGeneratorForConfig returns the appropriate generator and adjusted config.
func (c *Client) getGeneratorForConfig(config *GenerateConfig) (TextGenerator, *GenerateConfig, error) {
	model := c.resolveModel(config)

	c.mu.RLock()
	mapping, ok := c.modelMappings[model]
	c.mu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, model)
	}

	gen, err := c.getProvider(mapping.Provider)
	if err != nil {
		return nil, nil, err
	}

	actualConfig := config
	if actualConfig == nil {
		actualConfig = DefaultConfig()
	}
	configCopy := *actualConfig
	configCopy.Model = Model(mapping.ActualModelName)
	if configCopy.Model == "" {
		configCopy.Model = model
	}

	return gen, &configCopy, nil
}

// getProvider returns the provider instance for the given provider type.
func (c *Client) getProvider(provider Provider) (TextGenerator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gen, ok := c.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return gen, nil
}

func (c *Client) getLogger() *slog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}
