package hrailab

import (
	"time"
)

// Model represents a specific text generation model.
type Model string

const (
	ModelGemini25Pro              Model = "gemini-2.5-pro"
	ModelGemini25Flash            Model = "gemini-2.5-flash"
	ModelGemini25FlashPreview     Model = "gemini-2.5-flash-preview"
	ModelGemini25FlashLite        Model = "gemini-2.5-flash-lite"
	ModelGemini25FlashLitePreview Model = "gemini-2.5-flash-lite-preview"
	ModelGemini20Flash            Model = "gemini-2.0-flash"
	ModelGemini20FlashLite        Model = "gemini-2.0-flash-lite"

	ModelDefault Model = ModelGemini25FlashLite
)

// GenerateConfig holds configuration options for text generation.
type GenerateConfig struct {
	// Model to use for generation (if empty, uses client's default)
	Model Model

	// SystemPrompt is sent as the system instruction, if set
	SystemPrompt string

	// Temperature controls randomness (0.0-2.0)
	Temperature *float32

	// MaxOutputTokens caps the response length. Zero leaves it to the model.
	MaxOutputTokens int

	// JSONResponse asks the model to answer with JSON only
	JSONResponse bool

	// Metadata to attach to requests (for logging/tracking)
	Metadata map[string]string

	// Rate Limiting
	// WaitOnRateLimit, if true, causes the Client to block until the model's
	// limiter grants a request. If false, a RateLimitError is returned immediately.
	WaitOnRateLimit bool

	// MaxWaitDuration is the maximum time to wait when WaitOnRateLimit is true.
	// Zero means no limit.
	MaxWaitDuration time.Duration
}

// WithModel returns a copy of the config with the specified model.
func (c *GenerateConfig) WithModel(model Model) *GenerateConfig {
	if c == nil {
		return &GenerateConfig{Model: model}
	}
	cX := *c
	cX.Model = model
	return &cX
}

// WithSystemPrompt returns a copy of the config with the specified system prompt.
func (c *GenerateConfig) WithSystemPrompt(systemPrompt string) *GenerateConfig {
	if c == nil {
		return &GenerateConfig{SystemPrompt: systemPrompt}
	}
	cX := *c
	cX.SystemPrompt = systemPrompt
	return &cX
}

// DefaultConfig returns a GenerateConfig with sensible defaults.
// Callers block on the rate limiter rather than failing fast.
func DefaultConfig() *GenerateConfig {
	temp := float32(0.7)
	return &GenerateConfig{
		Model:           ModelDefault,
		Temperature:     &temp,
		MaxOutputTokens: 1000,
		WaitOnRateLimit: true,
	}
}

// DefaultConfigWithModel returns a default config with the specified model.
func DefaultConfigWithModel(model Model) *GenerateConfig {
	config := DefaultConfig()
	config.Model = model
	return config
}

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}
