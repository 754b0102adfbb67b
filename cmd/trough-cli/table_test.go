package main

import (
	"strings"
	"testing"
)

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable([]string{"id", "name"}, [][]string{
		{"1", "alice"},
		{"2", "bob"},
	})
	for _, want := range []string{"id", "name", "alice", "bob"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderTable() missing %q in:\n%s", want, out)
		}
	}
}

func TestColumnsOfCollectsAllKeysSorted(t *testing.T) {
	rows := []map[string]any{
		{"b": 1, "a": 2},
		{"c": 3},
	}
	cols := columnsOf(rows)
	want := []string{"a", "b", "c"}
	if len(cols) != len(want) {
		t.Fatalf("columnsOf() = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("columnsOf()[%d] = %q, want %q", i, cols[i], want[i])
		}
	}
}

func TestRowsToStringsFormatsValues(t *testing.T) {
	rows := []map[string]any{{"n": 42, "s": "hi"}}
	out := rowsToStrings(rows, []string{"n", "s"})
	if len(out) != 1 || out[0][0] != "42" || out[0][1] != "hi" {
		t.Errorf("rowsToStrings() = %v, want [[42 hi]]", out)
	}
}
