// Package prompt renders the compact prompt sent to the model.
//
// Prompt size is bounded by construction: a fixed number of lines, each
// truncated to a fixed character cap before inclusion. That bounds inference
// cost and latency deterministically instead of trimming after the fact.
package prompt

import (
	"strings"

	"github.com/fieldsense/fieldsense/internal/ambient"
	"github.com/fieldsense/fieldsense/internal/field"
	"github.com/fieldsense/fieldsense/internal/session"
)

// Per-line character caps.
const (
	capQuery   = 160
	capSummary = 120
	capThread  = 200
	capTitle   = 80
	capValue   = 120
	capPage    = 100

	maxTabLines     = 2
	maxHistoryLines = 2
)

// Input is everything the builder may draw on for one request.
type Input struct {
	Query      string
	Category   field.Category
	Descriptor field.Descriptor
	Snapshot   ambient.Snapshot
	Intent     session.Intent
}

// Built is the rendered prompt plus the mode-specific system instructions.
type Built struct {
	System   string
	User     string
	FormFill bool
}

const freeTextSystem = `You suggest autocomplete completions for a user's in-progress text. ` +
	`Respond with only a JSON object: {"reason": string, "suggestions": [{"text": string, "derivation": string}]}. ` +
	`At most 3 suggestions. The first should extend the user's current research topic, ` +
	`the second should draw on the ambient context, the third may explore adjacent ground.`

const formFillSystem = `You suggest a value for a single form field. ` +
	`Respond with only a JSON object: {"reason": string, "suggestions": [{"text": string, "derivation": string}]}. ` +
	`At most 3 short values, most likely first. Suggest nothing you cannot ground in the provided context.`

// Build renders the prompt. Form-fill shape is used when the category is a
// recognized short-answer field; everything else gets the free-text shape.
func Build(in Input) Built {
	if in.Category.FormFill() {
		return Built{System: formFillSystem, User: buildFormFill(in), FormFill: true}
	}
	return Built{System: freeTextSystem, User: buildFreeText(in)}
}

// line appends "LABEL: value" when value is non-empty, truncating first.
func line(b *strings.Builder, label, value string, cap int) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(truncate(value, cap))
	b.WriteByte('\n')
}

func buildFreeText(in Input) string {
	var b strings.Builder
	line(&b, "QUERY", in.Query, capQuery)
	line(&b, "SESSION", in.Intent.Summary, capSummary)
	line(&b, "THREAD", in.Intent.Thread, capThread)
	line(&b, "PAGE", in.Snapshot.PageTitle, capPage)
	for i, title := range in.Snapshot.TabTitles {
		if i == maxTabLines {
			break
		}
		line(&b, "TAB", title, capTitle)
	}
	for i, h := range in.Snapshot.Topics {
		if i == maxHistoryLines {
			break
		}
		line(&b, "HISTORY", h.Title, capTitle)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildFormFill(in Input) string {
	var b strings.Builder
	line(&b, "FIELD", string(in.Category), capTitle)
	line(&b, "LABEL", fieldLabel(in), capTitle)
	line(&b, "VALUE", in.Query, capValue)
	if professional(in.Category) {
		line(&b, "SESSION", in.Intent.Summary, capSummary)
		for i, title := range in.Snapshot.TabTitles {
			if i == maxTabLines {
				break
			}
			line(&b, "TAB", title, capTitle)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// fieldLabel prefers the page's own label text over the category label.
func fieldLabel(in Input) string {
	for _, s := range []string{in.Descriptor.AriaLabel, in.Descriptor.NearbyLabel, in.Descriptor.Placeholder} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return in.Category.Label()
}

// professional categories benefit from session/tab grounding; device facts
// do not.
func professional(c field.Category) bool {
	switch c {
	case field.CategoryJobTitle, field.CategoryCompany, field.CategoryWebsite, field.CategoryFullName:
		return true
	}
	return false
}

// truncate cuts s to max bytes at a rune boundary, appending an ellipsis
// marker when anything was cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 1
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
