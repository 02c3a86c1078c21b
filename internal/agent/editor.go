package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"texforge/backend/internal/cache"
	"texforge/backend/internal/diff"
	"texforge/backend/internal/document"
	"texforge/backend/internal/llm"
	"texforge/backend/internal/logging"
)

// chunkConcurrency bounds simultaneous in-flight chunk requests, for the
// endpoint's rate limits and our bill.
const chunkConcurrency = 3

// errUnparsable means the response survived neither parsing nor repair.
// It stays internal: the orchestrator reacts by escalating to chunked
// processing instead of surfacing it.
var errUnparsable = errors.New("response unparsable after repair")

// Editor runs the agent document-editing pipeline: prompt construction,
// inference, truncation repair, chunk fan-out, and compilation of model
// operations into exact-match change records.
type Editor struct {
	client llm.Client
	logger *slog.Logger
	notify func(method string, params any)

	mu      sync.Mutex
	results *cache.Cache
}

type Option func(*Editor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) { e.logger = logger }
}

// WithResultCache memoizes edit results in the given cache; the cache owns
// its TTL. Without it every call hits the endpoint.
func WithResultCache(c *cache.Cache) Option {
	return func(e *Editor) { e.results = c }
}

// WithNotifier emits per-chunk progress events on the chunked path.
func WithNotifier(fn func(method string, params any)) Option {
	return func(e *Editor) { e.notify = fn }
}

// SetResultCache swaps the result cache at runtime, so a settings change
// to the cache TTL takes effect without a restart. A nil cache disables
// memoization.
func (e *Editor) SetResultCache(c *cache.Cache) {
	e.mu.Lock()
	e.results = c
	e.mu.Unlock()
}

func (e *Editor) resultCache() *cache.Cache {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

func NewEditor(client llm.Client, opts ...Option) *Editor {
	e := &Editor{client: client, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one agent-edit call. Document and Instruction are read-only
// for the duration of the call; nothing is persisted here.
type Request struct {
	Document     string
	Instruction  string
	Model        string
	APIKey       string
	ForceChunked bool
	Images       []llm.Image
}

// Result is what the caller gets back. The contract guarantees a Result
// for any input that reaches Edit unless the endpoint itself fails on the
// single-shot path.
type Result struct {
	Explanation string   `json:"explanation"`
	Changes     []Change `json:"changes"`
	TokenUsage  int      `json:"token_usage"`
}

// Edit converts a free-form instruction plus a document into change
// records. Documents over 100 lines, forced requests, and single-shot
// responses that defeat repair all go through the chunked path.
func (e *Editor) Edit(ctx context.Context, req Request) (Result, error) {
	lines := document.Split(req.Document)
	log := e.logger.With("run_id", uuid.NewString())

	key := cache.Key("agent_edit", req.Model, req.Instruction, req.Document)
	if results := e.resultCache(); results != nil {
		if v, ok := results.Get(key); ok {
			if res, ok := v.(Result); ok {
				log.Debug("agent.cache_hit")
				return res, nil
			}
		}
	}

	if !req.ForceChunked && len(lines) <= singleShotMaxLines {
		res, err := e.editSingleShot(ctx, log, lines, req)
		if err == nil {
			e.storeResult(key, res)
			return res, nil
		}
		if !errors.Is(err, errUnparsable) {
			return Result{}, err
		}
		log.Warn("agent.single_shot_unparsable", "lines", len(lines))
	}

	res, err := e.editChunked(ctx, log, lines, req)
	if err == nil {
		e.storeResult(key, res)
	}
	return res, err
}

func (e *Editor) storeResult(key string, res Result) {
	if results := e.resultCache(); results != nil {
		results.Set(key, res)
	}
}

func (e *Editor) editSingleShot(ctx context.Context, log *slog.Logger, lines []string, req Request) (Result, error) {
	out, err := e.client.Generate(ctx, req.APIKey, buildEditRequest(req.Model, lines, req.Instruction, req.Images))
	if err != nil {
		return Result{}, err
	}
	if out.FinishReason == llm.FinishMaxTokens {
		log.Warn("agent.response_truncated", "tokens", out.TokenCount)
	}
	resp, repaired, ok := parseEditResponse(out.Text)
	if !ok {
		return Result{}, errUnparsable
	}
	ops := filterOps(lines, resp.Operations)
	sortOps(ops)
	ops = dedupeOps(ops)
	changes := compileOps(lines, ops, log)
	attachHunks(changes)
	expl := resp.Explanation
	if repaired {
		expl = annotatePartial(expl)
	}
	return Result{Explanation: expl, Changes: changes, TokenUsage: out.TokenCount}, nil
}

type chunkOutcome struct {
	ops    []Operation
	tokens int
	failed bool
}

func (e *Editor) editChunked(ctx context.Context, log *slog.Logger, lines []string, req Request) (Result, error) {
	chunks := document.SplitChunks(lines, document.DefaultChunkLines)
	if len(chunks) == 0 {
		return Result{Explanation: "The document is empty; found 0 changes.", Changes: []Change{}}, nil
	}

	outcomes := make([]chunkOutcome, len(chunks))
	sem := make(chan struct{}, chunkConcurrency)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			// Images ride along on the first chunk only; repeating
			// them per chunk multiplies payload cost for nothing.
			images := req.Images
			if i > 0 {
				images = nil
			}
			outcomes[i] = e.editChunk(ctx, log, lines, chunks[i], req, images)
			if e.notify != nil {
				e.notify("AgentEditProgress", map[string]any{
					"chunk":  i + 1,
					"chunks": len(chunks),
				})
			}
		}(i)
	}
	wg.Wait()

	var merged []Operation
	tokens := 0
	failed := 0
	for i, out := range outcomes {
		tokens += out.tokens
		if out.failed {
			failed++
			continue
		}
		for _, op := range out.ops {
			// The model saw a few context lines beyond its chunk; it
			// is not allowed to edit them.
			if !chunks[i].Contains(op.Line) {
				log.Debug("agent.op_outside_chunk", "line", op.Line,
					"chunk_start", chunks[i].StartLine, "chunk_end", chunks[i].EndLine)
				continue
			}
			merged = append(merged, op)
		}
	}

	sortOps(merged)
	merged = dedupeOps(merged)
	merged = filterOps(lines, merged)
	changes := compileOps(lines, merged, log)
	attachHunks(changes)

	expl := fmt.Sprintf("Processed %d sections and found %d changes.", len(chunks), len(changes))
	if failed > 0 {
		expl += fmt.Sprintf(" %d sections could not be processed.", failed)
	}
	return Result{Explanation: expl, Changes: changes, TokenUsage: tokens}, nil
}

// editChunk runs one chunk through inference and repair. Every failure
// mode, endpoint errors and timeouts included, degrades to this chunk
// contributing nothing; siblings are unaffected.
func (e *Editor) editChunk(ctx context.Context, log *slog.Logger, lines []string, chunk document.Chunk, req Request, images []llm.Image) chunkOutcome {
	out, err := e.client.Generate(ctx, req.APIKey, buildChunkRequest(req.Model, lines, chunk, req.Instruction, images))
	if err != nil {
		log.Warn("agent.chunk_failed", "chunk_start", chunk.StartLine,
			"chunk_end", chunk.EndLine, "error", err.Error())
		return chunkOutcome{failed: true}
	}
	resp, _, ok := parseEditResponse(out.Text)
	if !ok {
		log.Warn("agent.chunk_unparsable", "chunk_start", chunk.StartLine,
			"chunk_end", chunk.EndLine, "tokens", out.TokenCount)
		return chunkOutcome{tokens: out.TokenCount, failed: true}
	}
	return chunkOutcome{ops: resp.Operations, tokens: out.TokenCount}
}

func attachHunks(changes []Change) {
	for i := range changes {
		hunks, oversized := diff.TextDiffWithLimit(changes[i].Original, changes[i].Replacement, 0)
		if !oversized {
			changes[i].Hunks = hunks
		}
	}
}

func annotatePartial(expl string) string {
	if expl == "" || expl == partialNote {
		return partialNote
	}
	return expl + " (recovered from a truncated response; the edit list may be incomplete)"
}
