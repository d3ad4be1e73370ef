// Package gemini provides a TextGenerator implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mhpenta/hrailab"
	"google.golang.org/genai"
)

// ErrResponseBlocked is returned when Gemini returns no usable candidate,
// typically because the prompt or the answer was blocked by safety filters.
var ErrResponseBlocked = errors.New("response blocked")

// defaultRetryAfter is used when a 429 carries no retry delay.
const defaultRetryAfter = 60 * time.Second

// GeminiGenerator implements TextGenerator using Google's Gemini API.
type GeminiGenerator struct {
	client         *genai.Client
	safetySettings []*genai.SafetySetting
	mu             sync.RWMutex
}

// Ensure GeminiGenerator implements the interface.
var _ hrailab.TextGenerator = (*GeminiGenerator)(nil)

// New creates a new GeminiGenerator from a ProviderConfig.
func New(ctx context.Context, config *hrailab.ProviderConfig) (*GeminiGenerator, error) {
	if config == nil {
		config = &hrailab.ProviderConfig{}
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	if config.APIKey != "" {
		clientCfg.APIKey = config.APIKey
	}
	// If APIKey is empty, the SDK will try GOOGLE_API_KEY or GEMINI_API_KEY env vars

	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
	}, nil
}

// NewWithAPIKey creates a generator with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	return New(ctx, &hrailab.ProviderConfig{
		Provider: hrailab.ProviderGeminiAPI,
		APIKey:   apiKey,
	})
}

// SetSafetySettings configures safety settings sent with every request.
func (g *GeminiGenerator) SetSafetySettings(settings []*genai.SafetySetting) *GeminiGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.safetySettings = settings
	return g
}

// Generate produces a completion for a prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, config *hrailab.GenerateConfig) (*hrailab.GenerateResult, error) {
	if err := hrailab.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	if config == nil {
		config = hrailab.DefaultConfig()
	}

	modelName := g.resolveModel(config)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	genConfig := g.buildGenerateContentConfig(config)

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, genConfig)
	if err != nil {
		if rlErr := checkRateLimitError(err, modelName); hrailab.IsRateLimitError(rlErr) {
			return nil, rlErr
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return parseResult(result)
}

// Models returns the model definitions supported by this provider.
// The first model (Gemini 2.5 Flash-Lite) is the default.
func (g *GeminiGenerator) Models() []hrailab.ModelInfo {
	return []hrailab.ModelInfo{
		Gemini25FlashLiteInfo,
		Gemini25FlashLitePreviewInfo,
		Gemini25FlashInfo,
		Gemini25FlashPreviewInfo,
		Gemini25ProInfo,
		Gemini20FlashInfo,
		Gemini20FlashLiteInfo,
	}
}

// Close releases any resources held by the generator.
func (g *GeminiGenerator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

// resolveModel determines which API model name to use.
// Falls back to the first model (default) if none specified.
func (g *GeminiGenerator) resolveModel(config *hrailab.GenerateConfig) string {
	if config != nil && config.Model != "" {
		return string(config.Model)
	}
	return g.Models()[0].APIModelName
}

// buildGenerateContentConfig converts our config to Gemini's GenerateContentConfig format.
func (g *GeminiGenerator) buildGenerateContentConfig(config *hrailab.GenerateConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{}

	if config.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(config.SystemPrompt, genai.RoleUser)
	}

	// Temperature
	if config.Temperature != nil {
		genConfig.Temperature = genai.Ptr(*config.Temperature)
	}

	if config.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(config.MaxOutputTokens)
	}

	if config.JSONResponse {
		genConfig.ResponseMIMEType = "application/json"
	}

	g.mu.RLock()
	if len(g.safetySettings) > 0 {
		genConfig.SafetySettings = g.safetySettings
	}
	g.mu.RUnlock()

	return genConfig
}

// parseResult converts Gemini response to our result type.
func parseResult(result *genai.GenerateContentResponse) (*hrailab.GenerateResult, error) {
	if result == nil || len(result.Candidates) == 0 {
		if result != nil && result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked: %s", ErrResponseBlocked, result.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%w: no candidates returned", ErrResponseBlocked)
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: finish reason %s", ErrResponseBlocked, finishReasonOrUnknown(candidate.FinishReason))
	}

	genResult := &hrailab.GenerateResult{
		FinishReason: string(candidate.FinishReason),
		Model:        result.ModelVersion,
	}

	var textParts, thinkingParts []string
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		// Handle thinking/thought parts
		if part.Thought {
			thinkingParts = append(thinkingParts, part.Text)
			continue
		}
		textParts = append(textParts, part.Text)
	}

	genResult.Text = strings.Join(textParts, "")
	if len(thinkingParts) > 0 {
		genResult.ThinkingContent = strings.Join(thinkingParts, "\n")
	}

	// Parse usage metadata if available
	if result.UsageMetadata != nil {
		genResult.UsageMetadata = &hrailab.UsageMetadata{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			ThoughtsTokens:   int(result.UsageMetadata.ThoughtsTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return genResult, nil
}

func finishReasonOrUnknown(reason genai.FinishReason) string {
	if reason == "" {
		return "unknown"
	}
	return string(reason)
}

// checkRateLimitError checks if an error from the Gemini API is a rate limit error.
// If so, it wraps it in a RateLimitError for standardized handling; otherwise returns the original error.
func checkRateLimitError(err error, model string) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code != 429 && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return err
	}

	return &hrailab.RateLimitError{
		RetryAfter: retryDelay(apiErr),
		LimitType:  "requests",
		Model:      model,
		Err:        err,
	}
}

// retryDelay reads the google.rpc.RetryInfo detail of a 429, if present.
func retryDelay(apiErr genai.APIError) time.Duration {
	for _, detail := range apiErr.Details {
		typ, _ := detail["@type"].(string)
		if !strings.HasSuffix(typ, "google.rpc.RetryInfo") {
			continue
		}
		raw, _ := detail["retryDelay"].(string)
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return defaultRetryAfter
}
