// Package ai exposes the backend's AI operations: autocomplete, chat,
// document generation, content improvement, and agent edits. It owns
// model selection, prompt budgets, per-user token accounting, and the
// dev-mode fallback used when no API key is configured.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"texforge/backend/internal/agent"
	"texforge/backend/internal/llm"
	"texforge/backend/internal/logging"
	"texforge/backend/internal/settings"
	"texforge/backend/internal/store"
)

// Prompt budgets, in tokens. Trimming by tokens rather than bytes keeps
// multi-byte sequences intact.
const (
	autocompleteContextTokens = 1000
	chatContextTokens         = 500

	autocompleteMaxOutput = 100
	chatMaxOutput         = 1024
	generateMaxOutput     = 4096

	autocompleteTemperature = 0.1
	chatTemperature         = 0.3
	generateTemperature     = 0.2
)

type Config struct {
	Client   llm.Client
	Editor   *agent.Editor
	Settings *settings.Store
	Ledger   store.TokenLedger
	Archive  store.ChatArchive
	Logger   *slog.Logger
	// APIKey resolves the Gemini key per call, so key changes made over
	// RPC take effect without a restart. An empty key enables dev mode.
	APIKey func() (string, error)
}

type Service struct {
	client   llm.Client
	editor   *agent.Editor
	settings *settings.Store
	ledger   store.TokenLedger
	archive  store.ChatArchive
	logger   *slog.Logger
	apiKey   func() (string, error)
}

func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		client:   cfg.Client,
		editor:   cfg.Editor,
		settings: cfg.Settings,
		ledger:   cfg.Ledger,
		archive:  cfg.Archive,
		logger:   logger,
		apiKey:   cfg.APIKey,
	}
}

// TextResult is the response of the plain text operations.
type TextResult struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// Autocomplete suggests a short completion at the cursor.
func (s *Service) Autocomplete(ctx context.Context, uid, contextText string, cursor int, fileName string) (TextResult, error) {
	if cursor >= 0 && cursor < len(contextText) {
		contextText = contextText[:cursor]
	}
	contextText = llm.TrimToTokens(contextText, autocompleteContextTokens)
	prompt := autocompletePrompt(contextText, fileName)
	result, err := s.generate(ctx, settings.ModelClassFlash, llm.GenerateRequest{
		Prompt:          prompt,
		Temperature:     autocompleteTemperature,
		MaxOutputTokens: autocompleteMaxOutput,
	}, devAutocomplete)
	if err != nil {
		return TextResult{}, err
	}
	s.recordUsage(ctx, uid, settings.ModelClassFlash, result.TokenCount)
	return TextResult{Text: strings.TrimSpace(result.Text), Tokens: result.TokenCount}, nil
}

// Chat answers a question about the document and archives the exchange.
func (s *Service) Chat(ctx context.Context, uid, projectID, message, contextText, modelClass string) (TextResult, error) {
	modelClass = normalizeClass(modelClass, settings.ModelClassFlash)
	contextText = llm.TrimToTokens(contextText, chatContextTokens)
	result, err := s.generate(ctx, modelClass, llm.GenerateRequest{
		Prompt:          chatPrompt(contextText, message),
		Temperature:     chatTemperature,
		MaxOutputTokens: chatMaxOutput,
	}, devChat)
	if err != nil {
		return TextResult{}, err
	}
	s.recordUsage(ctx, uid, modelClass, result.TokenCount)
	if s.archive != nil {
		if _, err := s.archive.SaveChat(ctx, uid, projectID, []store.ChatMessage{
			{Role: "user", Content: message},
			{Role: "assistant", Content: result.Text, Tokens: result.TokenCount},
		}); err != nil {
			s.logger.Warn("ai.chat_archive_failed", "error", err.Error())
		}
	}
	return TextResult{Text: result.Text, Tokens: result.TokenCount}, nil
}

// GenerateDocument converts free-form content into a full LaTeX document
// in the requested theme.
func (s *Service) GenerateDocument(ctx context.Context, uid, content, theme, customTheme string) (TextResult, error) {
	result, err := s.generate(ctx, settings.ModelClassPro, llm.GenerateRequest{
		Prompt:          generatePrompt(content, themeDescription(theme, customTheme)),
		Temperature:     generateTemperature,
		MaxOutputTokens: generateMaxOutput,
	}, devGenerate)
	if err != nil {
		return TextResult{}, err
	}
	s.recordUsage(ctx, uid, settings.ModelClassPro, result.TokenCount)
	return TextResult{Text: result.Text, Tokens: result.TokenCount}, nil
}

// ImproveContent rewrites LaTeX content for structure and style.
func (s *Service) ImproveContent(ctx context.Context, uid, content string) (TextResult, error) {
	result, err := s.generate(ctx, settings.ModelClassPro, llm.GenerateRequest{
		Prompt:          improvePrompt(content),
		Temperature:     generateTemperature,
		MaxOutputTokens: generateMaxOutput,
	}, devImprove)
	if err != nil {
		return TextResult{}, err
	}
	s.recordUsage(ctx, uid, settings.ModelClassPro, result.TokenCount)
	return TextResult{Text: result.Text, Tokens: result.TokenCount}, nil
}

// AgentEditRequest is the RPC-facing shape of an agent edit.
type AgentEditRequest struct {
	ProjectID    string      `json:"project_id"`
	Document     string      `json:"document"`
	Instruction  string      `json:"instruction"`
	ModelClass   string      `json:"model,omitempty"`
	ForceChunked bool        `json:"force_chunked,omitempty"`
	Images       []llm.Image `json:"-"`
}

// AgentEdit runs the agent pipeline. It always returns a result object:
// endpoint failures degrade to an explanation with zero changes, matching
// the UI contract that an edit attempt never hard-fails.
func (s *Service) AgentEdit(ctx context.Context, uid string, req AgentEditRequest) (agent.Result, error) {
	modelClass := normalizeClass(req.ModelClass, settings.ModelClassPro)
	cfg, err := s.settings.Load()
	if err != nil {
		return agent.Result{}, err
	}
	key, err := s.apiKey()
	if err != nil {
		return agent.Result{}, err
	}
	if key == "" {
		s.logger.Info("ai.dev_mode", "operation", "agent_edit")
		return devAgentEdit(), nil
	}
	result, err := s.editor.Edit(ctx, agent.Request{
		Document:     req.Document,
		Instruction:  req.Instruction,
		Model:        cfg.ModelFor(modelClass),
		APIKey:       key,
		ForceChunked: req.ForceChunked,
		Images:       req.Images,
	})
	if err != nil {
		s.logger.Error("ai.agent_edit_failed", "error", err.Error())
		return agent.Result{
			Explanation: fmt.Sprintf("Error: %s", userMessage(err)),
			Changes:     []agent.Change{},
		}, nil
	}
	s.recordUsage(ctx, uid, modelClass, result.TokenUsage)
	return result, nil
}

// generate resolves model and key for a class and runs one call, falling
// back to canned dev output when no key is configured.
func (s *Service) generate(ctx context.Context, modelClass string, req llm.GenerateRequest, dev func() string) (llm.GenerateResult, error) {
	cfg, err := s.settings.Load()
	if err != nil {
		return llm.GenerateResult{}, err
	}
	key, err := s.apiKey()
	if err != nil {
		return llm.GenerateResult{}, err
	}
	if key == "" {
		s.logger.Info("ai.dev_mode", "model_class", modelClass)
		return llm.GenerateResult{Text: dev(), FinishReason: llm.FinishComplete}, nil
	}
	req.Model = cfg.ModelFor(modelClass)
	result, err := s.client.Generate(ctx, key, req)
	if err == nil && result.TokenCount == 0 && result.Text != "" {
		// The endpoint sometimes omits usage metadata; estimate so the
		// ledger does not undercount.
		result.TokenCount = llm.EstimateTokens(result.Text)
	}
	return result, err
}

func (s *Service) recordUsage(ctx context.Context, uid, modelClass string, tokens int) {
	if s.ledger == nil || tokens == 0 {
		return
	}
	if err := s.ledger.AddUsage(ctx, uid, modelClass, tokens); err != nil {
		s.logger.Warn("ai.usage_record_failed", "uid", uid, "error", err.Error())
	}
}

func normalizeClass(class, fallback string) string {
	switch class {
	case settings.ModelClassFlash, settings.ModelClassPro:
		return class
	default:
		return fallback
	}
}
