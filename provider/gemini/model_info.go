package gemini

import (
	"github.com/mhpenta/hrailab"
	"github.com/mhpenta/hrailab/ratelimiter"
)

// Model name constants - the actual API model names.
const (
	APIModelGemini25Pro              = "gemini-2.5-pro"
	APIModelGemini25Flash            = "gemini-2.5-flash"
	APIModelGemini25FlashPreview     = "gemini-2.5-flash-preview"
	APIModelGemini25FlashLite        = "gemini-2.5-flash-lite"
	APIModelGemini25FlashLitePreview = "gemini-2.5-flash-lite-preview"
	APIModelGemini20Flash            = "gemini-2.0-flash"
	APIModelGemini20FlashLite        = "gemini-2.0-flash-lite"
)

// Free tier limits, kept in line with ratelimiter.DefaultQuotaTable.
var defaultQuotas = ratelimiter.DefaultQuotaTable()

// Gemini25ProInfo is the model info for Gemini 2.5 Pro, the reasoning model.
// Its free tier allows only 2 requests per minute.
var Gemini25ProInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini25Pro),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini25Pro,

	Capabilities: hrailab.ModelCapabilities{
		SupportsSystemInstruction: true,
		SupportsJSONMode:          true,
		SupportsThinking:          true,
	},

	ContextLength:   1048576, // 1M tokens
	MaxOutputTokens: 65536,

	RateLimits: defaultQuotas[APIModelGemini25Pro],

	// Pricing for prompts ≤200K tokens.
	Pricing: hrailab.Pricing{
		InputTokensPerMillion:  1.25,
		OutputTokensPerMillion: 10.00,
	},
}

var Gemini25FlashInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini25Flash),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini25Flash,

	Capabilities: hrailab.ModelCapabilities{
		SupportsSystemInstruction: true,
		SupportsJSONMode:          true,
		SupportsThinking:          true,
	},

	ContextLength:   1048576,
	MaxOutputTokens: 65536,

	RateLimits: defaultQuotas[APIModelGemini25Flash],

	Pricing: hrailab.Pricing{
		InputTokensPerMillion:  0.30,
		OutputTokensPerMillion: 2.50,
	},
}

var Gemini25FlashPreviewInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini25FlashPreview),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini25FlashPreview,

	Capabilities: Gemini25FlashInfo.Capabilities,

	ContextLength:   1048576,
	MaxOutputTokens: 65536,

	RateLimits: defaultQuotas[APIModelGemini25FlashPreview],

	Pricing: Gemini25FlashInfo.Pricing,
}

// Gemini25FlashLiteInfo is the default model: cheapest, and the highest
// request budget of the 2.5 family.
var Gemini25FlashLiteInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini25FlashLite),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini25FlashLite,

	Capabilities: hrailab.ModelCapabilities{
		SupportsSystemInstruction: true,
		SupportsJSONMode:          true,
		SupportsThinking:          true,
	},

	ContextLength:   1048576,
	MaxOutputTokens: 65536,

	RateLimits: defaultQuotas[APIModelGemini25FlashLite],

	Pricing: hrailab.Pricing{
		InputTokensPerMillion:  0.10,
		OutputTokensPerMillion: 0.40,
	},
}

var Gemini25FlashLitePreviewInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini25FlashLitePreview),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini25FlashLitePreview,

	Capabilities: Gemini25FlashLiteInfo.Capabilities,

	ContextLength:   1048576,
	MaxOutputTokens: 65536,

	RateLimits: defaultQuotas[APIModelGemini25FlashLitePreview],

	Pricing: Gemini25FlashLiteInfo.Pricing,
}

var Gemini20FlashInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini20Flash),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini20Flash,

	Capabilities: hrailab.ModelCapabilities{
		SupportsSystemInstruction: true,
		SupportsJSONMode:          true,
	},

	ContextLength:   1048576,
	MaxOutputTokens: 8192,

	RateLimits: defaultQuotas[APIModelGemini20Flash],

	Pricing: hrailab.Pricing{
		InputTokensPerMillion:  0.10,
		OutputTokensPerMillion: 0.40,
	},
}

var Gemini20FlashLiteInfo = hrailab.ModelInfo{
	Name:         string(hrailab.ModelGemini20FlashLite),
	Provider:     hrailab.ProviderGeminiAPI,
	APIModelName: APIModelGemini20FlashLite,

	Capabilities: Gemini20FlashInfo.Capabilities,

	ContextLength:   1048576,
	MaxOutputTokens: 8192,

	RateLimits: defaultQuotas[APIModelGemini20FlashLite],

	Pricing: hrailab.Pricing{
		InputTokensPerMillion:  0.075,
		OutputTokensPerMillion: 0.30,
	},
}
