package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"texforge/backend/internal/document"
	"texforge/backend/internal/llm"
)

const (
	// Documents up to this many lines are edited in a single inference
	// call; anything larger goes through the chunking path.
	singleShotMaxLines = 100
	// Lines of read-only context rendered around each chunk.
	chunkContextLines = 3

	editTemperature          = 0.1
	singleShotMaxOutputToken = 4096
	chunkMaxOutputToken      = 2048
)

// operationSchema is the structured-output contract sent with every edit
// request. The endpoint is asked (not guaranteed) to emit JSON of this
// shape; the parser re-validates everything.
var operationSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "explanation": {"type": "string"},
    "operations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string", "enum": ["wrap", "replace", "insert", "delete"]},
          "line": {"type": "integer"},
          "start_char": {"type": "integer"},
          "end_char": {"type": "integer"},
          "end_line": {"type": "integer"},
          "position": {"type": "string", "enum": ["before", "after"]},
          "wrapper": {"type": "string"},
          "content": {"type": "string"},
          "reason": {"type": "string"}
        },
        "required": ["type", "line", "reason"]
      }
    }
  },
  "required": ["explanation", "operations"]
}`)

const promptContract = `You edit LaTeX documents by emitting precise operations against the
numbered listing above. Respond with a single JSON object:

{"explanation": "<what you will do>", "operations": [ ... ]}

Each operation is one of exactly four kinds:
- {"type": "wrap", "line": N, "start_char": S, "end_char": E, "wrapper": "\\textbf{[TEXT]}", "reason": "..."}
  wraps the characters [S, E) of line N; the wrapper must contain the
  [TEXT] placeholder; end_char -1 means end of line.
- {"type": "replace", "line": N, "start_char": S, "end_char": E, "content": "...", "reason": "..."}
  replaces characters [S, E) of line N with content.
- {"type": "insert", "line": N, "position": "before"|"after", "content": "...", "reason": "..."}
  inserts content as a new line before or after line N.
- {"type": "delete", "line": N, "end_line": M, "reason": "..."}
  deletes lines N through M inclusive.

Line numbers are 1-indexed and refer to the listing above. Character
offsets are 0-indexed. Every operation needs a reason. Emit the smallest
set of operations that satisfies the instruction. Return ONLY valid JSON,
no markdown fences.`

// buildEditRequest assembles the inference request for a whole-document
// edit.
func buildEditRequest(model string, lines []string, instruction string, images []llm.Image) llm.GenerateRequest {
	var b strings.Builder
	b.WriteString("Document:\n")
	b.WriteString(document.Render(lines))
	b.WriteString("\n")
	b.WriteString(promptContract)
	b.WriteString("\n\nUser instruction: ")
	b.WriteString(instruction)
	return llm.GenerateRequest{
		Model:           model,
		Prompt:          b.String(),
		Temperature:     editTemperature,
		MaxOutputTokens: singleShotMaxOutputToken,
		ResponseSchema:  operationSchema,
		Images:          images,
	}
}

// buildChunkRequest assembles the inference request for one chunk. The
// rendered view spans a few lines beyond the chunk for continuity, but only
// the chunk's own range is marked editable; operations addressing context
// lines are filtered out later.
func buildChunkRequest(model string, lines []string, chunk document.Chunk, instruction string, images []llm.Image) llm.GenerateRequest {
	var b strings.Builder
	b.WriteString("Document excerpt (a larger document is being edited in sections):\n")
	b.WriteString(document.RenderWindow(lines,
		chunk.StartLine-chunkContextLines, chunk.EndLine+chunkContextLines,
		chunk.StartLine, chunk.EndLine))
	b.WriteString("\n")
	b.WriteString(promptContract)
	fmt.Fprintf(&b, "\n\nOnly lines %d-%d are editable; lines outside that range are context and must not be referenced by any operation.",
		chunk.StartLine, chunk.EndLine)
	b.WriteString("\n\nUser instruction: ")
	b.WriteString(instruction)
	return llm.GenerateRequest{
		Model:           model,
		Prompt:          b.String(),
		Temperature:     editTemperature,
		MaxOutputTokens: chunkMaxOutputToken,
		ResponseSchema:  operationSchema,
		Images:          images,
	}
}
