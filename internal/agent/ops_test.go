package agent

import (
	"reflect"
	"testing"
)

func TestFilterOpsDropsBadLines(t *testing.T) {
	lines := []string{"alpha", "beta"}
	ops := []Operation{
		{Type: OpReplace, Line: 0, StartChar: 0, EndChar: 1, Reason: "r"},
		{Type: OpReplace, Line: 3, StartChar: 0, EndChar: 1, Reason: "r"},
		{Type: OpReplace, Line: 2, StartChar: 0, EndChar: 1, Reason: "r"},
	}
	kept := filterOps(lines, ops)
	if len(kept) != 1 || kept[0].Line != 2 {
		t.Fatalf("kept = %+v, want only line 2", kept)
	}
}

func TestFilterOpsClampsEndChar(t *testing.T) {
	lines := []string{"alpha"}
	kept := filterOps(lines, []Operation{
		{Type: OpWrap, Line: 1, StartChar: 0, EndChar: -1, Wrapper: "\\textbf{[TEXT]}", Reason: "r"},
	})
	if len(kept) != 1 || kept[0].EndChar != len("alpha") {
		t.Fatalf("kept = %+v, want end_char clamped to 5", kept)
	}
}

func TestFilterOpsClampsDeleteRange(t *testing.T) {
	lines := []string{"a", "b", "c"}
	kept := filterOps(lines, []Operation{
		{Type: OpDelete, Line: 2, Reason: "missing end_line"},
		{Type: OpDelete, Line: 2, EndLine: 99, Reason: "overflowing end_line"},
	})
	if len(kept) != 2 {
		t.Fatalf("kept = %+v, want both deletes", kept)
	}
	if kept[0].EndLine != 2 {
		t.Fatalf("missing end_line clamped to %d, want 2", kept[0].EndLine)
	}
	if kept[1].EndLine != 3 {
		t.Fatalf("overflowing end_line clamped to %d, want 3", kept[1].EndLine)
	}
}

func TestFilterOpsDropsInvalidInsertAndUnknownType(t *testing.T) {
	lines := []string{"a"}
	kept := filterOps(lines, []Operation{
		{Type: OpInsert, Line: 1, Position: "above", Content: "x", Reason: "r"},
		{Type: "move", Line: 1, Reason: "r"},
		{Type: OpInsert, Line: 1, Position: PositionAfter, Content: "x", Reason: "r"},
	})
	if len(kept) != 1 || kept[0].Position != PositionAfter {
		t.Fatalf("kept = %+v, want only the valid insert", kept)
	}
}

func TestSortOpsStable(t *testing.T) {
	ops := []Operation{
		{Type: OpReplace, Line: 3, StartChar: 5, Reason: "a"},
		{Type: OpReplace, Line: 1, StartChar: 9, Reason: "b"},
		{Type: OpInsert, Line: 3, StartChar: 5, Position: PositionAfter, Reason: "c"},
		{Type: OpReplace, Line: 1, StartChar: 2, Reason: "d"},
	}
	sortOps(ops)
	gotReasons := []string{ops[0].Reason, ops[1].Reason, ops[2].Reason, ops[3].Reason}
	// Same (line, start_char) keeps arrival order: "a" before "c".
	want := []string{"d", "b", "a", "c"}
	if !reflect.DeepEqual(gotReasons, want) {
		t.Fatalf("order = %v, want %v", gotReasons, want)
	}
}

func TestDedupeOpsFirstWins(t *testing.T) {
	ops := []Operation{
		{Type: OpReplace, Line: 2, StartChar: 4, Content: "first", Reason: "r"},
		{Type: OpReplace, Line: 2, StartChar: 4, Content: "second", Reason: "r"},
		{Type: OpWrap, Line: 2, StartChar: 4, Wrapper: "\\emph{[TEXT]}", Reason: "r"},
		{Type: OpReplace, Line: 2, StartChar: 5, Content: "third", Reason: "r"},
	}
	out := dedupeOps(ops)
	if len(out) != 3 {
		t.Fatalf("deduped = %+v, want 3 survivors", out)
	}
	if out[0].Content != "first" {
		t.Fatalf("survivor content = %q, want the first occurrence", out[0].Content)
	}
}
