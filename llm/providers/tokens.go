package providers

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// EstimateTokens approximates the token count of text for the given model.
// Used only for diagnostics: adapters log it alongside generation calls.
// Falls back to cl100k_base for models tiktoken does not know, and to a
// bytes/4 heuristic when no encoding can be loaded at all.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
