package hrailab

import (
	"context"
)

// MockTextGenerator is a mock implementation of TextGenerator.
type MockTextGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error)
	ModelsFunc   func() []ModelInfo
	CloseFunc    func() error
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, config)
	}
	return &GenerateResult{}, nil
}

func (m *MockTextGenerator) Models() []ModelInfo {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return []ModelInfo{}
}

func (m *MockTextGenerator) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
