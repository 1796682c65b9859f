package mcp

import (
	"github.com/tiktoken-go/tokenizer"
)

// TokenCount estimates how many cl100k tokens the tool definition costs
// a model client: name, description and input schema. It falls back to
// a length/4 estimate when the codec is unavailable.
func (t Tool) TokenCount() int {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return (len(t.Name) + len(t.Description) + len(t.InputSchema)) / 4
	}

	total := countOrEstimate(codec, t.Name) + countOrEstimate(codec, t.Description)
	if len(t.InputSchema) > 0 {
		total += countOrEstimate(codec, string(t.InputSchema))
	}
	return total
}

func countOrEstimate(codec tokenizer.Codec, text string) int {
	if text == "" {
		return 0
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}
