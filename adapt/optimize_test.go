package adapt

import (
	"reflect"
	"testing"
)

func TestCollapseWhitespace(t *testing.T) {
	if got := collapseWhitespace("too   many\t\tspaces"); got != "too many spaces" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestTrimLines(t *testing.T) {
	if got := trimLines("line one   \nline two\t"); got != "line one\nline two" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestApplyOptimizationsSkipsUnknownNames(t *testing.T) {
	registry := DefaultOptimizations()

	text, applied := applyOptimizations("a  b ", []string{"collapse_whitespace", "invent_emoji", "trim_lines"}, registry)
	if text != "a b" {
		t.Fatalf("unexpected text: %q", text)
	}
	want := []string{"collapse_whitespace", "trim_lines"}
	if !reflect.DeepEqual(applied, want) {
		t.Fatalf("expected %v applied, got %v", want, applied)
	}

	text, applied = applyOptimizations("same", []string{"invent_emoji"}, registry)
	if text != "same" || applied != nil {
		t.Fatalf("unknown-only list must be a no-op: %q %v", text, applied)
	}
}
