// Package gemini implements the inference-endpoint boundary against the
// Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"texforge/backend/internal/egress"
	"texforge/backend/internal/llm"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiHost        = "generativelanguage.googleapis.com"
)

// Sampling defaults applied to every call.
const (
	defaultTopP = 0.8
	defaultTopK = 40
)

// Client is a minimal Gemini generateContent wrapper implementing
// llm.Client.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	transport := egress.NewAllowlistRoundTripper(http.DefaultTransport, []string{apiHost})
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
	}
}

// ValidateKey checks an API key with a cheap models listing call.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	u, err := url.Parse(c.baseURL + "/v1beta/models")
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, llm.ErrEgressBlocked) {
			return llm.ErrEgressBlocked
		}
		return err
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("validation failed: %s", resp.Status)
	}
	return nil
}

// Generate runs one text-completion call. A MAX_TOKENS finish is not an
// error: the partial text is returned for the caller's repair pipeline.
func (c *Client) Generate(ctx context.Context, apiKey string, genReq llm.GenerateRequest) (llm.GenerateResult, error) {
	payload := generateRequest{
		Contents: []content{{Parts: buildParts(genReq)}},
		GenerationConfig: &generationConfig{
			Temperature:     genReq.Temperature,
			MaxOutputTokens: genReq.MaxOutputTokens,
			TopP:            defaultTopP,
			TopK:            defaultTopK,
		},
	}
	if len(genReq.ResponseSchema) > 0 {
		payload.GenerationConfig.ResponseMIMEType = "application/json"
		payload.GenerationConfig.ResponseSchema = genReq.ResponseSchema
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return llm.GenerateResult{}, err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, genReq.Model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return llm.GenerateResult{}, err
	}
	req.Header.Set("content-type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, llm.ErrEgressBlocked) {
			return llm.GenerateResult{}, llm.ErrEgressBlocked
		}
		return llm.GenerateResult{}, err
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return llm.GenerateResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(resp.Body)
		return llm.GenerateResult{}, fmt.Errorf("gemini error: %s - %s", resp.Status, string(errorBody))
	}
	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return llm.GenerateResult{}, err
	}
	if len(response.Candidates) == 0 {
		return llm.GenerateResult{}, llm.ErrEmptyResponse
	}
	candidate := response.Candidates[0]
	text := extractText(candidate.Content.Parts)
	finish := mapFinishReason(candidate.FinishReason)
	if text == "" && finish != llm.FinishMaxTokens {
		return llm.GenerateResult{}, llm.ErrEmptyResponse
	}
	return llm.GenerateResult{
		Text:         text,
		FinishReason: finish,
		TokenCount:   response.UsageMetadata.TotalTokenCount,
	}, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llm.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return llm.ErrRateLimited
	case status >= 500:
		return llm.ErrUnavailable
	default:
		return nil
	}
}

func buildParts(genReq llm.GenerateRequest) []part {
	parts := []part{{Text: genReq.Prompt}}
	for _, img := range genReq.Images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	return parts
}

func extractText(parts []part) string {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.WriteString(p.Text)
	}
	return buf.String()
}

func mapFinishReason(reason string) string {
	switch reason {
	case "STOP", "":
		return llm.FinishComplete
	case "MAX_TOKENS":
		return llm.FinishMaxTokens
	default:
		return llm.FinishOther
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	TopP             float64         `json:"topP,omitempty"`
	TopK             int             `json:"topK,omitempty"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	TotalTokenCount int `json:"totalTokenCount"`
}
