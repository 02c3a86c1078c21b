package ai

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"texforge/backend/internal/agent"
	"texforge/backend/internal/errinfo"
	"texforge/backend/internal/llm"
	"texforge/backend/internal/settings"
	"texforge/backend/internal/store"
)

type fakeClient struct {
	mu   sync.Mutex
	reqs []llm.GenerateRequest
	fn   func(req llm.GenerateRequest) (llm.GenerateResult, error)
}

func (f *fakeClient) Generate(_ context.Context, _ string, req llm.GenerateRequest) (llm.GenerateResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeClient) last(t *testing.T) llm.GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reqs) == 0 {
		t.Fatal("no requests recorded")
	}
	return f.reqs[len(f.reqs)-1]
}

func newTestService(t *testing.T, client llm.Client, apiKey string) (*Service, *store.MemoryLedger, *store.MemoryArchive) {
	t.Helper()
	ledger := store.NewMemoryLedger()
	archive := store.NewMemoryArchive()
	svc := New(Config{
		Client:   client,
		Editor:   agent.NewEditor(client),
		Settings: settings.NewStore(filepath.Join(t.TempDir(), "settings.json")),
		Ledger:   ledger,
		Archive:  archive,
		APIKey:   func() (string, error) { return apiKey, nil },
	})
	return svc, ledger, archive
}

func TestAutocompleteUsesFlashModel(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: "  \\label{sec:intro}  ", FinishReason: llm.FinishComplete, TokenCount: 42}, nil
	}}
	svc, ledger, _ := newTestService(t, client, "key")

	result, err := svc.Autocomplete(context.Background(), "u1", "\\section{Introduction}\n", -1, "main.tex")
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if result.Text != "\\label{sec:intro}" {
		t.Fatalf("suggestion not trimmed: %q", result.Text)
	}
	req := client.last(t)
	if req.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q, want flash", req.Model)
	}
	if req.MaxOutputTokens != autocompleteMaxOutput || req.Temperature != autocompleteTemperature {
		t.Fatalf("unexpected generation config: %+v", req)
	}
	usage, _ := ledger.Usage(context.Background(), "u1")
	if usage.Flash != 42 || usage.Total != 42 {
		t.Fatalf("ledger = %+v, want 42 flash tokens", usage)
	}
}

func TestAutocompleteCutsAtCursor(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: "done"}, nil
	}}
	svc, _, _ := newTestService(t, client, "key")

	if _, err := svc.Autocomplete(context.Background(), "u1", "before|after", 6, ""); err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	req := client.last(t)
	if strings.Contains(req.Prompt, "after") {
		t.Fatal("prompt includes text beyond the cursor")
	}
	if !strings.Contains(req.Prompt, "before") {
		t.Fatal("prompt missing text before the cursor")
	}
}

func TestChatArchivesExchange(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: "Use \\usepackage{amsmath}.", TokenCount: 17}, nil
	}}
	svc, ledger, archive := newTestService(t, client, "key")

	result, err := svc.Chat(context.Background(), "u1", "p1", "How do I align equations?", "\\documentclass{article}", settings.ModelClassPro)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Tokens != 17 {
		t.Fatalf("tokens = %d, want 17", result.Tokens)
	}
	if req := client.last(t); req.Model != "gemini-1.5-pro" {
		t.Fatalf("model = %q, want pro", req.Model)
	}
	usage, _ := ledger.Usage(context.Background(), "u1")
	if usage.Pro != 17 {
		t.Fatalf("ledger = %+v, want 17 pro tokens", usage)
	}
	records, _ := archive.History(context.Background(), "u1", "p1")
	if len(records) != 1 || len(records[0].Messages) != 2 {
		t.Fatalf("archive records = %+v, want one record with both messages", records)
	}
	if records[0].Messages[0].Role != "user" || records[0].Messages[1].Role != "assistant" {
		t.Fatalf("unexpected roles: %+v", records[0].Messages)
	}
}

func TestChatUnknownClassFallsBackToFlash(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: "ok"}, nil
	}}
	svc, _, _ := newTestService(t, client, "key")

	if _, err := svc.Chat(context.Background(), "u1", "p1", "hi", "", "turbo-ultra"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if req := client.last(t); req.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q, want flash fallback", req.Model)
	}
}

func TestGenerateDocumentThemes(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: "\\documentclass{report}"}, nil
	}}
	svc, _, _ := newTestService(t, client, "key")

	if _, err := svc.GenerateDocument(context.Background(), "u1", "notes", "thesis", ""); err != nil {
		t.Fatalf("GenerateDocument: %v", err)
	}
	if req := client.last(t); !strings.Contains(req.Prompt, "chapters") {
		t.Fatalf("thesis theme not reflected in prompt: %q", req.Prompt)
	}

	if _, err := svc.GenerateDocument(context.Background(), "u1", "notes", "custom", "a cookbook with recipe cards"); err != nil {
		t.Fatalf("GenerateDocument: %v", err)
	}
	if req := client.last(t); !strings.Contains(req.Prompt, "recipe cards") {
		t.Fatalf("custom theme not reflected in prompt: %q", req.Prompt)
	}
}

func TestImproveContentUsesProModel(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: "better", TokenCount: 9}, nil
	}}
	svc, ledger, _ := newTestService(t, client, "key")

	if _, err := svc.ImproveContent(context.Background(), "u1", "\\emph{rough draft}"); err != nil {
		t.Fatalf("ImproveContent: %v", err)
	}
	if req := client.last(t); req.Model != "gemini-1.5-pro" {
		t.Fatalf("model = %q, want pro", req.Model)
	}
	usage, _ := ledger.Usage(context.Background(), "u1")
	if usage.Pro != 9 {
		t.Fatalf("ledger = %+v, want 9 pro tokens", usage)
	}
}

func TestDevModeSkipsEndpoint(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		t.Fatal("endpoint must not be called in dev mode")
		return llm.GenerateResult{}, nil
	}}
	svc, ledger, _ := newTestService(t, client, "")

	result, err := svc.Autocomplete(context.Background(), "u1", "x", -1, "")
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if result.Text == "" {
		t.Fatal("dev mode returned empty suggestion")
	}

	edit, err := svc.AgentEdit(context.Background(), "u1", AgentEditRequest{Document: "x", Instruction: "bold it"})
	if err != nil {
		t.Fatalf("AgentEdit: %v", err)
	}
	if len(edit.Changes) != 0 || edit.Explanation == "" {
		t.Fatalf("unexpected dev edit result: %+v", edit)
	}
	usage, _ := ledger.Usage(context.Background(), "u1")
	if usage.Total != 0 {
		t.Fatalf("dev mode recorded usage: %+v", usage)
	}
}

func TestAgentEditRecordsUsage(t *testing.T) {
	response := `{"explanation":"Replace the greeting.","operations":[` +
		`{"type":"replace","line":1,"start_char":0,"end_char":5,"content":"Howdy","reason":"greeting"}]}`
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{Text: response, FinishReason: llm.FinishComplete, TokenCount: 31}, nil
	}}
	svc, ledger, _ := newTestService(t, client, "key")

	result, err := svc.AgentEdit(context.Background(), "u1", AgentEditRequest{
		Document:    "Hello world",
		Instruction: "make it folksy",
	})
	if err != nil {
		t.Fatalf("AgentEdit: %v", err)
	}
	if len(result.Changes) != 1 || result.Changes[0].Replacement != "Howdy world" {
		t.Fatalf("unexpected changes: %+v", result.Changes)
	}
	if req := client.last(t); req.Model != "gemini-1.5-pro" {
		t.Fatalf("model = %q, want pro default", req.Model)
	}
	usage, _ := ledger.Usage(context.Background(), "u1")
	if usage.Pro != 31 {
		t.Fatalf("ledger = %+v, want 31 pro tokens", usage)
	}
}

func TestAgentEditDegradesEndpointFailure(t *testing.T) {
	client := &fakeClient{fn: func(llm.GenerateRequest) (llm.GenerateResult, error) {
		return llm.GenerateResult{}, llm.ErrUnavailable
	}}
	svc, ledger, _ := newTestService(t, client, "key")

	result, err := svc.AgentEdit(context.Background(), "u1", AgentEditRequest{
		Document:    "Hello world",
		Instruction: "anything",
	})
	if err != nil {
		t.Fatalf("AgentEdit must not fail hard: %v", err)
	}
	if !strings.HasPrefix(result.Explanation, "Error:") {
		t.Fatalf("explanation = %q, want Error prefix", result.Explanation)
	}
	if len(result.Changes) != 0 || result.TokenUsage != 0 {
		t.Fatalf("degraded result carries changes or tokens: %+v", result)
	}
	usage, _ := ledger.Usage(context.Background(), "u1")
	if usage.Total != 0 {
		t.Fatalf("failed edit recorded usage: %+v", usage)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"unauthorized", llm.ErrUnauthorized, errinfo.CodeProviderAuthFailed},
		{"rate limited", llm.ErrRateLimited, errinfo.CodeProviderUnavailable},
		{"unavailable", llm.ErrUnavailable, errinfo.CodeProviderUnavailable},
		{"egress", llm.ErrEgressBlocked, errinfo.CodeEgressBlocked},
		{"timeout", context.DeadlineExceeded, errinfo.CodeNetworkUnavailable},
		{"unknown", errors.New("boom"), errinfo.CodeProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := MapError(errinfo.PhaseChat, "gemini-2.0-flash", tc.err)
			if info.ErrorCode != tc.code {
				t.Fatalf("code = %q, want %q", info.ErrorCode, tc.code)
			}
			if info.ModelID != "gemini-2.0-flash" {
				t.Fatalf("model id not attached: %+v", info)
			}
		})
	}
}
