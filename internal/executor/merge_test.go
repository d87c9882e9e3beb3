package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeInput(t *testing.T) {
	query := map[string]any{
		"page":   "1",
		"filter": map[string]any{"status": "active", "city": "York"},
		"tags":   []any{"a"},
	}
	body := map[string]any{
		"filter": map[string]any{"city": "Leeds"},
		"tags":   []any{"b", "c"},
		"name":   "Adam",
	}
	want := map[string]any{
		"page":   "1",
		"filter": map[string]any{"status": "active", "city": "Leeds"},
		"tags":   []any{"b", "c"},
		"name":   "Adam",
	}
	if diff := cmp.Diff(want, MergeInput(query, body)); diff != "" {
		t.Fatalf("MergeInput mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"status": "active", "city": "York"}, query["filter"]); diff != "" {
		t.Fatalf("query was modified (-want +got):\n%s", diff)
	}
	if got := MergeInput(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}
