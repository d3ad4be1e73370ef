package hrailab

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrEmptyPrompt        = errors.New("prompt cannot be empty")
	ErrInvalidTemperature = errors.New("temperature out of range")
	ErrInvalidMaxTokens   = errors.New("max output tokens cannot be negative")
	ErrInvalidMaxWait     = errors.New("max wait duration cannot be negative")
)

// Temperature limits accepted by Gemini text models
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// ValidatePrompt validates a text prompt.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateConfig validates the generation parameters of a config.
// A nil config is valid; defaults apply.
func ValidateConfig(config *GenerateConfig) error {
	if config == nil {
		return nil
	}

	if config.Temperature != nil {
		t := *config.Temperature
		if t < MinTemperature || t > MaxTemperature {
			return fmt.Errorf("%w: %.2f (allowed %.1f-%.1f)", ErrInvalidTemperature, t, MinTemperature, MaxTemperature)
		}
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, config.MaxOutputTokens)
	}

	if config.MaxWaitDuration < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidMaxWait, config.MaxWaitDuration)
	}

	return nil
}
