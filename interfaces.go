package hrailab

import "context"

// TextGenerator is the core interface for text generation models.
// Implement this interface to add support for new models or providers.
//
// The first model returned by Models() is considered the default model.
type TextGenerator interface {
	// Generate produces a completion for a prompt.
	// genConfig.Model holds the provider's API model name.
	Generate(ctx context.Context, prompt string, genConfig *GenerateConfig) (*GenerateResult, error)

	// Models returns the model definitions supported by this provider.
	// The first model in the list is the default.
	Models() []ModelInfo

	// Close releases any resources held by the generator.
	Close() error
}
