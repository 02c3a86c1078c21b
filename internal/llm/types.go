package llm

import (
	"context"
	"encoding/json"
)

// Finish reasons reported by the inference endpoint. MaxTokens is a
// distinguished condition: the response text is a usable partial result,
// not garbage.
const (
	FinishComplete  = "COMPLETE"
	FinishMaxTokens = "MAX_TOKENS"
	FinishOther     = "OTHER"
)

// Image is an inline image attached to a generation request.
type Image struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest is one text-completion call to the inference endpoint.
type GenerateRequest struct {
	Model           string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
	// ResponseSchema, when set, asks the endpoint for structured JSON
	// output conforming to the schema. Cooperative, not guaranteed:
	// callers must still validate what comes back.
	ResponseSchema json.RawMessage
	Images         []Image
}

// GenerateResult carries the endpoint's text plus how the generation ended.
// Text may be a truncated prefix when FinishReason is MaxTokens.
type GenerateResult struct {
	Text         string
	FinishReason string
	TokenCount   int
}

// Client is the inference endpoint boundary.
type Client interface {
	Generate(ctx context.Context, apiKey string, req GenerateRequest) (GenerateResult, error)
}
