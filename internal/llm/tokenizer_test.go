package llm

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("EstimateTokens(\"\") = %d", got)
	}
	short := EstimateTokens("hello world")
	if short < 1 || short > 4 {
		t.Fatalf("EstimateTokens(\"hello world\") = %d, want a small count", short)
	}
	long := EstimateTokens(strings.Repeat("hello world ", 100))
	if long <= short {
		t.Fatalf("longer text estimated at %d tokens, short at %d", long, short)
	}
}

func TestTrimToTokensKeepsTail(t *testing.T) {
	text := strings.Repeat("filler sentence about nothing. ", 200) + "THE END MARKER"
	trimmed := TrimToTokens(text, 50)
	if !strings.HasSuffix(trimmed, "THE END MARKER") {
		t.Fatalf("trimmed text lost the tail: %q", trimmed[len(trimmed)-40:])
	}
	if EstimateTokens(trimmed) > 50 {
		t.Fatalf("trimmed text estimates at %d tokens, want <= 50", EstimateTokens(trimmed))
	}
	if len(trimmed) >= len(text) {
		t.Fatal("text was not trimmed")
	}
}

func TestTrimToTokensShortTextUntouched(t *testing.T) {
	text := "short text"
	if got := TrimToTokens(text, 100); got != text {
		t.Fatalf("TrimToTokens = %q, want unchanged", got)
	}
	if got := TrimToTokens(text, 0); got != "" {
		t.Fatalf("TrimToTokens with zero budget = %q, want empty", got)
	}
}
