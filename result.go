package hrailab

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// GenerateResult holds the result of a text generation request.
type GenerateResult struct {
	// Text is the concatenated text of the first candidate
	Text string

	// ThinkingContent contains the model's reasoning, if returned
	ThinkingContent string

	// FinishReason reported by the provider (e.g., "STOP", "MAX_TOKENS")
	FinishReason string

	// Model is the API model that served the request
	Model string

	// RequestID is assigned by the Client for log correlation
	RequestID string

	// UsageMetadata contains token/billing information
	UsageMetadata *UsageMetadata
}

// UsageMetadata contains usage information for billing and monitoring.
type UsageMetadata struct {
	PromptTokens     int
	CandidatesTokens int
	ThoughtsTokens   int
	TotalTokens      int
}

// BatchItem is the outcome of one prompt in a batch.
type BatchItem struct {
	Index  int
	Prompt string
	Result *GenerateResult
	Err    error
}

// DecodeJSON unmarshals the response text into v.
// Markdown code fences around the JSON are removed first.
func (r *GenerateResult) DecodeJSON(v any) error {
	if r == nil {
		return fmt.Errorf("decode json: nil result")
	}
	if err := json.Unmarshal([]byte(StripCodeFence(r.Text)), v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

var (
	fencedBlock   = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\n?(.*?)```")
	unclosedFence = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\n?(.*)$")
)

// StripCodeFence returns the body of the first ``` or ```json block in text,
// which may be preceded by prose. A fence left open runs to the end of the
// text. Without a fence the trimmed text is returned.
func StripCodeFence(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := unclosedFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
