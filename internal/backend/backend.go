// Package backend is the RPC facade of the editor backend. It owns wiring:
// stores, the Gemini client, the AI service, and the agent editor, and it
// translates JSON params into typed calls.
package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"texforge/backend/internal/agent"
	"texforge/backend/internal/ai"
	"texforge/backend/internal/appdirs"
	"texforge/backend/internal/cache"
	"texforge/backend/internal/errinfo"
	"texforge/backend/internal/gemini"
	"texforge/backend/internal/latex"
	"texforge/backend/internal/logging"
	"texforge/backend/internal/secrets"
	"texforge/backend/internal/settings"
	"texforge/backend/internal/store"
)

const (
	BackendVersion = "0.3.0"
	APIVersion     = "1"
)

// defaultUID is used when the frontend does not scope a call to a user.
const defaultUID = "local"

type Notifier func(method string, params any)

type Backend struct {
	dataDir  string
	settings *settings.Store
	secrets  *secrets.Store
	gemini   *gemini.Client
	service  *ai.Service
	editor   *agent.Editor
	ledger   store.TokenLedger
	archive  store.ChatArchive
	notify   Notifier
	logger   *slog.Logger
}

type Option func(*Backend)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStores overrides the persistence boundaries; used by hosts that keep
// usage and chat history in a real database.
func WithStores(ledger store.TokenLedger, archive store.ChatArchive) Option {
	return func(b *Backend) {
		if ledger != nil {
			b.ledger = ledger
		}
		if archive != nil {
			b.archive = archive
		}
	}
}

func New(opts ...Option) (*Backend, error) {
	b := &Backend{logger: logging.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	dataDir, err := appdirs.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	b.dataDir = dataDir
	b.settings = settings.NewStore(filepath.Join(dataDir, "settings.json"))
	b.secrets = secrets.NewStore(filepath.Join(dataDir, "secrets.enc"), filepath.Join(dataDir, "master.key"))
	b.gemini = gemini.NewClient()
	if b.ledger == nil {
		b.ledger = store.NewMemoryLedger()
	}
	if b.archive == nil {
		b.archive = store.NewMemoryArchive()
	}

	cfg, err := b.settings.Load()
	if err != nil {
		return nil, err
	}
	editorOpts := []agent.Option{
		agent.WithLogger(b.logger.With("component", "agent")),
		agent.WithNotifier(func(method string, params any) {
			if b.notify != nil {
				b.notify(method, params)
			}
		}),
	}
	if c := resultCache(cfg.CacheTTLMinutes); c != nil {
		editorOpts = append(editorOpts, agent.WithResultCache(c))
	}
	b.editor = agent.NewEditor(b.gemini, editorOpts...)
	b.service = ai.New(ai.Config{
		Client:   b.gemini,
		Editor:   b.editor,
		Settings: b.settings,
		Ledger:   b.ledger,
		Archive:  b.archive,
		Logger:   b.logger.With("component", "ai"),
		APIKey:   b.secrets.GetGeminiKey,
	})
	b.logger.Debug("backend.init", "data_dir", dataDir)
	return b, nil
}

func (b *Backend) SetNotifier(notify Notifier) {
	b.notify = notify
}

func (b *Backend) BackendGetInfo(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	return map[string]any{
		"backend_version": BackendVersion,
		"api_version":     APIVersion,
	}, nil
}

func (b *Backend) ProvidersGetStatus(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	key, err := b.secrets.GetGeminiKey()
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	return map[string]any{"configured": key != ""}, nil
}

func (b *Backend) ProvidersSetApiKey(_ context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	key := strings.TrimSpace(p.APIKey)
	if key == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, "api_key is required")
	}
	if err := b.secrets.SetGeminiKey(key); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	return map[string]any{"configured": true}, nil
}

func (b *Backend) ProvidersClearApiKey(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	if err := b.secrets.ClearGeminiKey(); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	return map[string]any{"configured": false}, nil
}

// ProvidersValidate checks a key against the live API. With no key in the
// params it validates the stored one.
func (b *Backend) ProvidersValidate(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		APIKey string `json:"api_key"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
		}
	}
	key := strings.TrimSpace(p.APIKey)
	if key == "" {
		stored, err := b.secrets.GetGeminiKey()
		if err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
		}
		key = stored
	}
	if key == "" {
		return nil, errinfo.ProviderNotConfigured(errinfo.PhaseSettings)
	}
	if err := b.gemini.ValidateKey(ctx, key); err != nil {
		return nil, ai.MapError(errinfo.PhaseSettings, "", err)
	}
	return map[string]any{"valid": true}, nil
}

func (b *Backend) SettingsGet(_ context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	cfg, err := b.settings.Load()
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	return cfg, nil
}

func (b *Backend) SettingsUpdate(_ context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		FlashModel      *string `json:"flash_model"`
		ProModel        *string `json:"pro_model"`
		CacheTTLMinutes *int    `json:"cache_ttl_minutes"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	cfg, err := b.settings.Update(func(s *settings.Settings) {
		if p.FlashModel != nil {
			s.FlashModel = *p.FlashModel
		}
		if p.ProModel != nil {
			s.ProModel = *p.ProModel
		}
		if p.CacheTTLMinutes != nil && *p.CacheTTLMinutes >= 0 {
			s.CacheTTLMinutes = *p.CacheTTLMinutes
		}
	})
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	if p.CacheTTLMinutes != nil {
		// A TTL change rebuilds the edit result cache immediately; cached
		// results from the old TTL are dropped rather than aged out.
		b.editor.SetResultCache(resultCache(cfg.CacheTTLMinutes))
	}
	return cfg, nil
}

// resultCache builds the agent edit result cache for a TTL in minutes.
// Zero disables caching.
func resultCache(ttlMinutes int) *cache.Cache {
	if ttlMinutes <= 0 {
		return nil
	}
	return cache.New(time.Duration(ttlMinutes) * time.Minute)
}

func (b *Backend) AIAutocomplete(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID            string `json:"uid"`
		Context        string `json:"context"`
		CursorPosition int    `json:"cursor_position"`
		FileName       string `json:"file_name"`
	}
	p.CursorPosition = -1
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAutocomplete, err.Error())
	}
	result, err := b.service.Autocomplete(ctx, uid(p.UID), p.Context, p.CursorPosition, p.FileName)
	if err != nil {
		return nil, ai.MapError(errinfo.PhaseAutocomplete, "", err)
	}
	return map[string]any{"suggestion": result.Text, "tokens": result.Tokens}, nil
}

func (b *Backend) AIChat(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID       string `json:"uid"`
		ProjectID string `json:"project_id"`
		Message   string `json:"message"`
		Context   string `json:"context"`
		Model     string `json:"model"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseChat, err.Error())
	}
	if strings.TrimSpace(p.Message) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseChat, "message is required")
	}
	result, err := b.service.Chat(ctx, uid(p.UID), p.ProjectID, p.Message, p.Context, p.Model)
	if err != nil {
		return nil, ai.MapError(errinfo.PhaseChat, "", err)
	}
	return map[string]any{"response": result.Text, "tokens": result.Tokens}, nil
}

func (b *Backend) AIChatHistory(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID       string `json:"uid"`
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseChat, err.Error())
	}
	records, err := b.archive.History(ctx, uid(p.UID), p.ProjectID)
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseChat, err.Error())
	}
	return map[string]any{"history": records}, nil
}

func (b *Backend) AIGenerateDocument(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID         string `json:"uid"`
		Content     string `json:"content"`
		Theme       string `json:"theme"`
		CustomTheme string `json:"custom_theme"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseGenerate, err.Error())
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseGenerate, "content is required")
	}
	result, err := b.service.GenerateDocument(ctx, uid(p.UID), p.Content, p.Theme, p.CustomTheme)
	if err != nil {
		return nil, ai.MapError(errinfo.PhaseGenerate, "", err)
	}
	return map[string]any{"document": result.Text, "tokens": result.Tokens}, nil
}

func (b *Backend) AIImproveContent(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID     string `json:"uid"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseImprove, err.Error())
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseImprove, "content is required")
	}
	result, err := b.service.ImproveContent(ctx, uid(p.UID), p.Content)
	if err != nil {
		return nil, ai.MapError(errinfo.PhaseImprove, "", err)
	}
	return map[string]any{"content": result.Text, "tokens": result.Tokens}, nil
}

func (b *Backend) AIAgentEdit(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID string `json:"uid"`
		ai.AgentEditRequest
		Images []imageParam `json:"images"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAgentEdit, err.Error())
	}
	if strings.TrimSpace(p.Instruction) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAgentEdit, "instruction is required")
	}
	req := p.AgentEditRequest
	for _, img := range p.Images {
		decoded, err := img.decode()
		if err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseAgentEdit, err.Error())
		}
		req.Images = append(req.Images, decoded)
	}
	result, err := b.service.AgentEdit(ctx, uid(p.UID), req)
	if err != nil {
		return nil, ai.MapError(errinfo.PhaseAgentEdit, "", err)
	}
	return result, nil
}

func (b *Backend) TokensGetUsage(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		UID string `json:"uid"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
		}
	}
	usage, err := b.ledger.Usage(ctx, uid(p.UID))
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSettings, err.Error())
	}
	return usage, nil
}

// LatexDetectEngine is a pure helper for the compile frontend: given the
// project files it names the engine the sources require.
func (b *Backend) LatexDetectEngine(_ context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var p struct {
		Files []latex.File `json:"files"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseCompile, err.Error())
	}
	return map[string]any{"engine": latex.DetectEngine(p.Files)}, nil
}

func uid(s string) string {
	if s == "" {
		return defaultUID
	}
	return s
}
