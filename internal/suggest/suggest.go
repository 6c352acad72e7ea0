// Package suggest parses, sanitizes and ranks the model's raw output into
// the final suggestion list.
//
// Model output is hostile input: it may be fenced, wrapped in prose, or
// structurally wrong. Parse failure degrades to an empty, well-formed result
// with a diagnostic reason — never an error past the pipeline boundary.
package suggest

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSuggestions bounds the final list.
const MaxSuggestions = 3

const (
	minTextLen = 3
	maxTextLen = 200
)

// Suggestion is one ranked completion with its derivation label.
type Suggestion struct {
	Text       string `json:"text"`
	Derivation string `json:"derivation"`
}

// Result is the pipeline's final output, always well-formed.
type Result struct {
	Reason      string       `json:"reason"`
	Suggestions []Suggestion `json:"suggestions"`
	IsFormFill  bool         `json:"isFormFill"`
}

// Empty builds an empty result carrying only a reason.
func Empty(reason string) Result {
	return Result{Reason: reason, Suggestions: []Suggestion{}}
}

// positionLabels label each rank's expected derivation: the first
// suggestion extends the session, the second draws on ambient context, the
// third explores.
var positionLabels = [MaxSuggestions]string{"Session", "Context", "Exploratory"}

// payload mirrors the JSON shape the system prompt demands.
type payload struct {
	Reason      string `json:"reason"`
	Suggestions []struct {
		Text       string `json:"text"`
		Derivation string `json:"derivation"`
	} `json:"suggestions"`
}

// schemaEchoes are field names of the payload schema itself; a model
// parroting them back produced no real suggestion.
var schemaEchoes = map[string]bool{
	"text": true, "derivation": true, "suggestions": true, "reason": true,
}

// Parse validates raw model output into a Result. Tolerates a code-fenced
// payload and leading/trailing prose (the outermost brace pair is
// extracted). Malformed entries are dropped, not corrected. Idempotent on
// well-formed input.
func Parse(raw string) Result {
	body, ok := extractJSON(raw)
	if !ok {
		return Empty("model returned no parseable payload")
	}
	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Empty("model payload is not valid JSON")
	}

	out := Result{Reason: p.Reason, Suggestions: []Suggestion{}}
	if out.Reason == "" {
		out.Reason = "ok"
	}
	for _, s := range p.Suggestions {
		text := strings.TrimSpace(s.Text)
		if !validText(text) {
			continue
		}
		rank := len(out.Suggestions)
		out.Suggestions = append(out.Suggestions, Suggestion{
			Text:       text,
			Derivation: label(rank, s.Derivation),
		})
		if len(out.Suggestions) == MaxSuggestions {
			break
		}
	}
	if len(out.Suggestions) == 0 {
		out.Reason = "no valid suggestions in model output"
	}
	return out
}

// label combines the positional label with any model-supplied derivation:
// the model's string is more specific, so it is kept and prefixed.
func label(rank int, supplied string) string {
	pos := positionLabels[rank]
	supplied = strings.TrimSpace(supplied)
	if supplied == "" {
		return pos
	}
	return pos + ": " + supplied
}

// validText enforces the per-entry rules: length bounds, not purely
// punctuation or bracket characters, not an echo of the schema's own field
// names.
func validText(text string) bool {
	if n := utf8.RuneCountInString(text); n < minTextLen || n > maxTextLen {
		return false
	}
	if schemaEchoes[strings.ToLower(text)] {
		return false
	}
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// extractJSON recovers the JSON object from raw model text. Code fences are
// stripped first; then the outermost matching brace pair is taken, which
// also handles leading or trailing prose.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if fenced, ok := stripFence(s); ok {
		s = fenced
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// stripFence unwraps ```json ... ``` (or bare ```) fences.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s), true
}
