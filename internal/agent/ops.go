// Package agent turns a natural-language edit instruction plus a LaTeX
// document into a minimal set of exact-match change records, by way of a
// schema-constrained inference call. Model output is untrusted end to end:
// every operation is validated against the real document before it becomes
// a change.
package agent

import "sort"

// Operation kinds the model may emit. Anything else is dropped.
const (
	OpWrap    = "wrap"
	OpReplace = "replace"
	OpInsert  = "insert"
	OpDelete  = "delete"
)

// Insert positions.
const (
	PositionBefore = "before"
	PositionAfter  = "after"
)

// WrapPlaceholder is the token a wrap operation's wrapper template must
// contain; it is substituted with the addressed substring.
const WrapPlaceholder = "[TEXT]"

// Operation is one model-proposed edit. All fields are model-controlled
// and unvalidated until filterOps has run. Line is 1-indexed; StartChar
// and EndChar are 0-indexed byte offsets within the line, EndChar
// exclusive. EndChar == -1 means end of line.
type Operation struct {
	Type      string `json:"type"`
	Line      int    `json:"line"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	EndLine   int    `json:"end_line,omitempty"`
	Position  string `json:"position,omitempty"`
	Wrapper   string `json:"wrapper,omitempty"`
	Content   string `json:"content,omitempty"`
	Reason    string `json:"reason"`
}

// filterOps validates operations against the document and drops the ones
// that cannot be addressed. A bad line reference from the model discards
// that one operation, never the batch. Character clamping:
//   - EndChar == -1 becomes the addressed line's length
//   - delete EndLine overflowing the document is clamped to the last line
func filterOps(lines []string, ops []Operation) []Operation {
	kept := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if op.Line < 1 || op.Line > len(lines) {
			continue
		}
		switch op.Type {
		case OpWrap, OpReplace:
			if op.EndChar == -1 {
				op.EndChar = len(lines[op.Line-1])
			}
		case OpInsert:
			if op.Position != PositionBefore && op.Position != PositionAfter {
				continue
			}
		case OpDelete:
			if op.EndLine < op.Line {
				op.EndLine = op.Line
			}
			if op.EndLine > len(lines) {
				op.EndLine = len(lines)
			}
		default:
			continue
		}
		kept = append(kept, op)
	}
	return kept
}

// sortOps orders operations by (line, start_char), stably so that
// same-position operations keep their arrival order.
func sortOps(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Line != ops[j].Line {
			return ops[i].Line < ops[j].Line
		}
		return ops[i].StartChar < ops[j].StartChar
	})
}

type opKey struct {
	line      int
	kind      string
	startChar int
}

// dedupeOps removes duplicates by (line, type, start_char), keeping the
// first occurrence. Overlapping chunk context windows can make two chunks
// propose the same edit; this collapses them.
func dedupeOps(ops []Operation) []Operation {
	seen := make(map[opKey]bool, len(ops))
	out := ops[:0]
	for _, op := range ops {
		key := opKey{line: op.Line, kind: op.Type, startChar: op.StartChar}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, op)
	}
	return out
}
