package hrailab

import "github.com/mhpenta/hrailab/ratelimiter"

// ModelCapabilities describes what features a model supports.
type ModelCapabilities struct {
	SupportsSystemInstruction bool
	SupportsJSONMode          bool // response_mime_type application/json
	SupportsThinking          bool // Reasoning/thinking mode
}

// Pricing defines cost information for a model.
type Pricing struct {
	InputTokensPerMillion  float64
	OutputTokensPerMillion float64
}

// ModelInfo contains complete metadata for a model.
type ModelInfo struct {
	// Identity
	Name         string   // Public model name (e.g., "gemini-2.5-flash")
	Provider     Provider // Which provider serves this model
	APIModelName string   // Actual API name; rate limits are tracked per API name

	// Capabilities
	Capabilities ModelCapabilities

	// Constraints
	ContextLength   int
	MaxOutputTokens int

	// Rate Limits. Only RequestsPerMinute is enforced.
	RateLimits ratelimiter.Quota

	// Pricing
	Pricing Pricing
}
