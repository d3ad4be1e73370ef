package hrailab

import (
	"math"
)

// TokenEstimator provides configurable token estimation strategies
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// SimpleTokenEstimator - fast approximation of token usage, used to charge
// the per-model tokens-per-minute budget before a request is sent
type SimpleTokenEstimator struct {
	SafetyMargin  float64
	CharsPerToken float64
}

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin:  1.2,
		CharsPerToken: 4.0,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	charsPerToken := e.CharsPerToken
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}

	charCount := len([]rune(text))
	tokenEstimate := float64(charCount) / charsPerToken
	tokenEstimate *= e.SafetyMargin

	return int(math.Ceil(tokenEstimate)) + 3
}

// estimateRequestTokens estimates the input tokens of a prompt and its system prompt.
func estimateRequestTokens(estimator TokenEstimator, config *GenerateConfig, prompt string) int {
	tokens := estimator.EstimateTokens(prompt)
	if config != nil && config.SystemPrompt != "" {
		tokens += estimator.EstimateTokens(config.SystemPrompt)
	}
	return tokens
}
