package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens returns an approximate token count for text using the
// cl100k_base encoding. Gemini tokenizes differently, but the estimate is
// close enough for prompt budgeting.
func EstimateTokens(text string) int {
	c, err := getCodec()
	if err != nil {
		return 0
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

// TrimToTokens truncates text to at most budget tokens, keeping the tail.
// Chat and autocomplete context is most relevant near the cursor, so the
// head is dropped first.
func TrimToTokens(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	c, err := getCodec()
	if err != nil {
		// Rough fallback: four bytes per token.
		max := budget * 4
		if len(text) <= max {
			return text
		}
		return text[len(text)-max:]
	}
	ids, _, err := c.Encode(text)
	if err != nil || len(ids) <= budget {
		return text
	}
	trimmed, err := c.Decode(ids[len(ids)-budget:])
	if err != nil {
		return text
	}
	return trimmed
}
