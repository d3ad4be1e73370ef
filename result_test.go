package hrailab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "no fence", text: "  {\"a\":1}\n", want: `{"a":1}`},
		{name: "json fence", text: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", text: "```\n[1, 2]\n```", want: `[1, 2]`},
		{name: "single line fence", text: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "prose before fence", text: "Here is the result:\n```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around fence", text: "Sure.\n```json\n{\"a\":1}\n```\nLet me know if you need more.", want: `{"a":1}`},
		{name: "first of two blocks", text: "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", want: `{"a":1}`},
		{name: "unterminated fence", text: "```json\n{\"a\":1}\n", want: `{"a":1}`},
		{name: "plain text", text: "no json here", want: "no json here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.text))
		})
	}
}

func TestGenerateResult_DecodeJSON(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}

	result := &GenerateResult{Text: "Here is the result:\n```json\n{\"a\":1}\n```"}
	require.NoError(t, result.DecodeJSON(&out))
	assert.Equal(t, 1, out.A)

	err := (&GenerateResult{Text: "not json"}).DecodeJSON(&out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")

	var nilResult *GenerateResult
	require.Error(t, nilResult.DecodeJSON(&out))
}
