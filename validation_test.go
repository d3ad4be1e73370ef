package hrailab

import (
	"errors"
	"testing"
	"time"
)

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		wantErr error
	}{
		{
			name:    "valid prompt",
			prompt:  "Summarize this job description in one sentence",
			wantErr: nil,
		},
		{
			name:    "empty prompt",
			prompt:  "",
			wantErr: ErrEmptyPrompt,
		},
		{
			name:    "whitespace only",
			prompt:  " \n\t ",
			wantErr: ErrEmptyPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrompt(tt.prompt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePrompt() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	temp := func(v float32) *float32 { return &v }

	tests := []struct {
		name    string
		config  *GenerateConfig
		wantErr error
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: nil,
		},
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: nil,
		},
		{
			name:    "zero temperature",
			config:  &GenerateConfig{Temperature: temp(0)},
			wantErr: nil,
		},
		{
			name:    "max temperature",
			config:  &GenerateConfig{Temperature: temp(2)},
			wantErr: nil,
		},
		{
			name:    "temperature too high",
			config:  &GenerateConfig{Temperature: temp(2.5)},
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative temperature",
			config:  &GenerateConfig{Temperature: temp(-0.1)},
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative max tokens",
			config:  &GenerateConfig{MaxOutputTokens: -1},
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "negative max wait",
			config:  &GenerateConfig{WaitOnRateLimit: true, MaxWaitDuration: -time.Second},
			wantErr: ErrInvalidMaxWait,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Model != ModelDefault {
		t.Errorf("Model = %q, want %q", config.Model, ModelDefault)
	}
	if config.Temperature == nil || *config.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", config.Temperature)
	}
	if config.MaxOutputTokens != 1000 {
		t.Errorf("MaxOutputTokens = %d, want 1000", config.MaxOutputTokens)
	}
	if !config.WaitOnRateLimit {
		t.Error("WaitOnRateLimit = false, want true")
	}

	withModel := config.WithModel(ModelGemini25Pro)
	if withModel.Model != ModelGemini25Pro || config.Model != ModelDefault {
		t.Error("WithModel must return a modified copy")
	}
}
