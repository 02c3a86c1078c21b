package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"texforge/backend/internal/diff"
)

// Change is a compiled, document-anchored edit. Original always equals the
// exact current content of lines [StartLine, EndLine] joined with newlines,
// so callers can apply it as an exact-match patch.
type Change struct {
	StartLine   int         `json:"start_line"`
	EndLine     int         `json:"end_line"`
	Original    string      `json:"original"`
	Replacement string      `json:"replacement"`
	Reason      string      `json:"reason"`
	Hunks       []diff.Hunk `json:"hunks,omitempty"`
}

// compileOps converts validated operations into change records. Each
// operation yields exactly one change or is skipped with a log line; a
// malformed operation never aborts the batch.
func compileOps(lines []string, ops []Operation, logger *slog.Logger) []Change {
	changes := make([]Change, 0, len(ops))
	for _, op := range ops {
		change, err := compileOp(lines, op)
		if err != nil {
			logger.Warn("agent.op_skipped", "type", op.Type, "line", op.Line, "error", err.Error())
			continue
		}
		changes = append(changes, change)
	}
	return changes
}

func compileOp(lines []string, op Operation) (Change, error) {
	line := lines[op.Line-1]
	switch op.Type {
	case OpWrap:
		start, end, err := charRange(line, op.StartChar, op.EndChar)
		if err != nil {
			return Change{}, err
		}
		if !strings.Contains(op.Wrapper, WrapPlaceholder) {
			return Change{}, fmt.Errorf("wrapper missing %s placeholder", WrapPlaceholder)
		}
		wrapped := strings.Replace(op.Wrapper, WrapPlaceholder, line[start:end], 1)
		return Change{
			StartLine:   op.Line,
			EndLine:     op.Line,
			Original:    line,
			Replacement: line[:start] + wrapped + line[end:],
			Reason:      op.Reason,
		}, nil
	case OpReplace:
		start, end, err := charRange(line, op.StartChar, op.EndChar)
		if err != nil {
			return Change{}, err
		}
		return Change{
			StartLine:   op.Line,
			EndLine:     op.Line,
			Original:    line,
			Replacement: line[:start] + op.Content + line[end:],
			Reason:      op.Reason,
		}, nil
	case OpInsert:
		replacement := op.Content + "\n" + line
		if op.Position == PositionAfter {
			replacement = line + "\n" + op.Content
		}
		return Change{
			StartLine:   op.Line,
			EndLine:     op.Line,
			Original:    line,
			Replacement: replacement,
			Reason:      op.Reason,
		}, nil
	case OpDelete:
		return Change{
			StartLine:   op.Line,
			EndLine:     op.EndLine,
			Original:    strings.Join(lines[op.Line-1:op.EndLine], "\n"),
			Replacement: "",
			Reason:      op.Reason,
		}, nil
	default:
		return Change{}, fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// charRange bounds-checks a [start, end) byte range within line.
func charRange(line string, start, end int) (int, int, error) {
	if start < 0 || start > len(line) {
		return 0, 0, fmt.Errorf("start_char %d out of range [0, %d]", start, len(line))
	}
	if end < start || end > len(line) {
		return 0, 0, fmt.Errorf("end_char %d out of range [%d, %d]", end, start, len(line))
	}
	return start, end, nil
}
