package document

import "strings"

const (
	// DefaultChunkLines is the hard cap on lines per chunk.
	DefaultChunkLines = 80
	// boundaryLookback is how far a split point may move backward to land
	// on a structural boundary instead of cutting mid-construct.
	boundaryLookback = 30
)

// Chunk is a contiguous slice of the document. StartLine and EndLine are
// 1-indexed and inclusive; Lines aliases the original slice.
type Chunk struct {
	StartLine int
	EndLine   int
	Lines     []string
}

// Contains reports whether the 1-indexed line falls inside the chunk.
func (c Chunk) Contains(line int) bool {
	return line >= c.StartLine && line <= c.EndLine
}

// boundaryPrefixes are LaTeX commands that open a structural unit. A chunk
// split is biased so these start a new chunk rather than getting severed
// from their body.
var boundaryPrefixes = []string{
	"\\section",
	"\\subsection",
	"\\subsubsection",
	"\\chapter",
	"\\begin{document}",
	"\\end{document}",
	"\\begin{figure",
	"\\begin{table",
	"\\begin{equation",
	"\\begin{align",
	"\\begin{itemize",
	"\\begin{enumerate",
}

// SplitChunks partitions lines into chunks of at most maxLines each.
// Together the chunks cover [1, len(lines)] exactly once: no gaps, no
// overlaps. Split points scan backward up to 30 lines looking for a
// structural boundary or a blank line.
func SplitChunks(lines []string, maxLines int) []Chunk {
	if maxLines <= 0 {
		maxLines = DefaultChunkLines
	}
	var chunks []Chunk
	start := 0
	for start < len(lines) {
		end := start + maxLines
		if end >= len(lines) {
			end = len(lines)
		} else {
			end = biasSplit(lines, start, end)
		}
		chunks = append(chunks, Chunk{
			StartLine: start + 1,
			EndLine:   end,
			Lines:     lines[start:end],
		})
		start = end
	}
	return chunks
}

// biasSplit moves the split point at `end` (0-indexed, exclusive) backward
// toward a natural boundary. The split never moves past start+1, so every
// chunk keeps at least one line.
func biasSplit(lines []string, start, end int) int {
	lo := end - boundaryLookback
	if lo <= start {
		lo = start + 1
	}
	for e := end; e >= lo; e-- {
		// Next chunk would open on a structural command.
		if e < len(lines) && isBoundaryLine(lines[e]) {
			return e
		}
		// This chunk would close on a blank line.
		if strings.TrimSpace(lines[e-1]) == "" {
			return e
		}
	}
	return end
}

func isBoundaryLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range boundaryPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
