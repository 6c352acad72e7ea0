package suggest

import (
	"reflect"
	"strings"
	"testing"
)

const wellFormed = `{"reason":"ok","suggestions":[{"text":"how does python asyncio handle concurrency under the hood","derivation":"session"}]}`

func TestParseWellFormed(t *testing.T) {
	got := Parse(wellFormed)
	if len(got.Suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got.Suggestions))
	}
	s := got.Suggestions[0]
	if s.Text != "how does python asyncio handle concurrency under the hood" {
		t.Errorf("text = %q", s.Text)
	}
	if s.Derivation != "Session: session" {
		t.Errorf("derivation = %q, want %q", s.Derivation, "Session: session")
	}
}

func TestParseIdempotent(t *testing.T) {
	a := Parse(wellFormed)
	b := Parse(wellFormed)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Parse not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestParseFencedWithProse(t *testing.T) {
	raw := "Sure! Here are some suggestions:\n```json\n" + wellFormed + "\n```\nLet me know if you need more."
	got := Parse(raw)
	if len(got.Suggestions) != 1 {
		t.Fatalf("fenced payload not extracted: %+v", got)
	}
}

func TestParseLeadingTrailingProse(t *testing.T) {
	raw := "Here you go: " + wellFormed + " -- hope that helps"
	got := Parse(raw)
	if len(got.Suggestions) != 1 {
		t.Fatalf("brace extraction failed: %+v", got)
	}
}

func TestParseGarbage(t *testing.T) {
	got := Parse("I cannot help with that.")
	if len(got.Suggestions) != 0 {
		t.Fatalf("garbage produced suggestions: %+v", got)
	}
	if got.Reason == "" {
		t.Error("empty result must carry a diagnostic reason")
	}
	if got.Suggestions == nil {
		t.Error("suggestions must be an empty slice, not nil")
	}
}

func TestParseDropsMalformedEntries(t *testing.T) {
	raw := `{"reason":"ok","suggestions":[
		{"text":"ok"},
		{"text":"(((())))"},
		{"text":"text"},
		{"text":"` + strings.Repeat("x", 300) + `"},
		{"text":"a real suggestion","derivation":"context"}
	]}`
	got := Parse(raw)
	if len(got.Suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got.Suggestions), got.Suggestions)
	}
	if got.Suggestions[0].Text != "a real suggestion" {
		t.Errorf("survivor = %q", got.Suggestions[0].Text)
	}
	// Labels are positional over the surviving list, not the raw list.
	if got.Suggestions[0].Derivation != "Session: context" {
		t.Errorf("derivation = %q", got.Suggestions[0].Derivation)
	}
}

func TestParseBoundsCountRunes(t *testing.T) {
	// 100 CJK characters is 300 bytes; the length bounds are per character,
	// so this must survive while a single multibyte rune must not.
	long := strings.Repeat("日", 100)
	raw := `{"suggestions":[{"text":"` + long + `"},{"text":"日"}]}`
	got := Parse(raw)
	if len(got.Suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got.Suggestions), got.Suggestions)
	}
	if got.Suggestions[0].Text != long {
		t.Errorf("survivor = %q", got.Suggestions[0].Text)
	}
}

func TestParseCapsAtThree(t *testing.T) {
	raw := `{"suggestions":[{"text":"one one"},{"text":"two two"},{"text":"three three"},{"text":"four four"}]}`
	got := Parse(raw)
	if len(got.Suggestions) != MaxSuggestions {
		t.Fatalf("got %d suggestions, want %d", len(got.Suggestions), MaxSuggestions)
	}
	wantLabels := []string{"Session", "Context", "Exploratory"}
	for i, s := range got.Suggestions {
		if s.Derivation != wantLabels[i] {
			t.Errorf("rank %d derivation = %q, want %q", i, s.Derivation, wantLabels[i])
		}
	}
}

func TestEmpty(t *testing.T) {
	got := Empty("blocked")
	if got.Reason != "blocked" || len(got.Suggestions) != 0 || got.Suggestions == nil {
		t.Fatalf("Empty() = %+v", got)
	}
}
