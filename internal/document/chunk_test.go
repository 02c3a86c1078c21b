package document

import (
	"fmt"
	"strings"
	"testing"
)

func filler(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("Body text line %d.", i+1)
	}
	return lines
}

func TestSplitChunksSmallDoc(t *testing.T) {
	chunks := SplitChunks(filler(5), DefaultChunkLines)
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].StartLine != 1 || chunks[0].EndLine != 5 {
		t.Fatalf("chunk = [%d, %d], want [1, 5]", chunks[0].StartLine, chunks[0].EndLine)
	}
}

func TestSplitChunksPartitionExactly(t *testing.T) {
	for _, n := range []int{1, 79, 80, 81, 160, 161, 250, 500} {
		lines := filler(n)
		// Sprinkle blank lines so boundary biasing actually kicks in.
		for i := 10; i < n; i += 17 {
			lines[i] = ""
		}
		chunks := SplitChunks(lines, DefaultChunkLines)
		next := 1
		for _, c := range chunks {
			if c.StartLine != next {
				t.Fatalf("n=%d: chunk starts at %d, want %d (gap or overlap)", n, c.StartLine, next)
			}
			size := c.EndLine - c.StartLine + 1
			if size < 1 || size > DefaultChunkLines {
				t.Fatalf("n=%d: chunk [%d, %d] has %d lines", n, c.StartLine, c.EndLine, size)
			}
			if len(c.Lines) != size {
				t.Fatalf("n=%d: chunk [%d, %d] carries %d lines", n, c.StartLine, c.EndLine, len(c.Lines))
			}
			if c.Lines[0] != lines[c.StartLine-1] {
				t.Fatalf("n=%d: chunk content misaligned at line %d", n, c.StartLine)
			}
			next = c.EndLine + 1
		}
		if next != n+1 {
			t.Fatalf("n=%d: last chunk ends at %d, want %d", n, next-1, n)
		}
	}
}

func TestSplitChunksAtLeastThreeForLargeDoc(t *testing.T) {
	if got := len(SplitChunks(filler(250), DefaultChunkLines)); got < 3 {
		t.Fatalf("250-line document split into %d chunks, want at least 3", got)
	}
}

func TestSplitChunksBiasedToSection(t *testing.T) {
	lines := filler(120)
	lines[69] = "\\section{Results}"
	chunks := SplitChunks(lines, DefaultChunkLines)
	if chunks[0].EndLine != 69 {
		t.Fatalf("first chunk ends at %d, want 69 so the section opens the next chunk", chunks[0].EndLine)
	}
	if chunks[1].Lines[0] != "\\section{Results}" {
		t.Fatalf("second chunk opens with %q, want the section line", chunks[1].Lines[0])
	}
}

func TestSplitChunksBiasedToBlankLine(t *testing.T) {
	lines := filler(120)
	lines[74] = ""
	chunks := SplitChunks(lines, DefaultChunkLines)
	if chunks[0].EndLine != 75 {
		t.Fatalf("first chunk ends at %d, want 75 (closing on the blank line)", chunks[0].EndLine)
	}
}

func TestSplitChunksNoBoundaryFallsBackToHardSplit(t *testing.T) {
	chunks := SplitChunks(filler(250), DefaultChunkLines)
	want := []int{80, 80, 80, 10}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %d, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if size := c.EndLine - c.StartLine + 1; size != want[i] {
			t.Fatalf("chunk %d has %d lines, want %d", i, size, want[i])
		}
	}
}

func TestSplitChunksIndentedBoundary(t *testing.T) {
	lines := filler(100)
	lines[75] = "  \\begin{figure}[h]"
	chunks := SplitChunks(lines, DefaultChunkLines)
	if chunks[0].EndLine != 75 {
		t.Fatalf("first chunk ends at %d, want 75 (indented boundary recognized)", chunks[0].EndLine)
	}
	if !strings.Contains(chunks[1].Lines[0], "\\begin{figure}") {
		t.Fatalf("second chunk opens with %q", chunks[1].Lines[0])
	}
}

func TestChunkContains(t *testing.T) {
	c := Chunk{StartLine: 10, EndLine: 20}
	for line, want := range map[int]bool{9: false, 10: true, 20: true, 21: false} {
		if got := c.Contains(line); got != want {
			t.Fatalf("Contains(%d) = %v, want %v", line, got, want)
		}
	}
}
