// Package document provides a line-addressed view over LaTeX source text.
// All external addressing is 1-indexed; the underlying slice is never
// mutated once built.
package document

import (
	"fmt"
	"strings"
)

// Split splits source text into lines. Handles both LF and CRLF.
// A trailing newline does not produce an extra empty line.
func Split(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// Join joins lines back into source text with a trailing newline.
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Render produces a numbered listing of the whole document, one line per
// source line in the form "   1| text".
func Render(lines []string) string {
	return RenderWindow(lines, 1, len(lines), 0, 0)
}

// RenderWindow produces a numbered listing of lines [from, to] (1-indexed,
// inclusive, clamped to the document). When editStart > 0, the region
// [editStart, editEnd] is bracketed with markers and everything else in the
// window is labelled as read-only context.
func RenderWindow(lines []string, from, to, editStart, editEnd int) string {
	if from < 1 {
		from = 1
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from > to {
		return ""
	}
	var b strings.Builder
	marked := editStart > 0
	for i := from; i <= to; i++ {
		if marked && i == editStart {
			b.WriteString(fmt.Sprintf("=== EDITABLE REGION (lines %d-%d) ===\n", editStart, editEnd))
		}
		fmt.Fprintf(&b, "%4d| %s\n", i, lines[i-1])
		if marked && i == editEnd {
			b.WriteString("=== END EDITABLE REGION ===\n")
		}
	}
	return b.String()
}
