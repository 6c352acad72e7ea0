package prompt

import (
	"strings"
	"testing"

	"github.com/fieldsense/fieldsense/internal/ambient"
	"github.com/fieldsense/fieldsense/internal/field"
	"github.com/fieldsense/fieldsense/internal/session"
)

func TestFreeTextIncludesSessionLine(t *testing.T) {
	built := Build(Input{
		Query:    "python async",
		Category: field.CategorySearch,
		Intent:   session.Intent{Summary: "Researching: python, asyncio, concurrency"},
	})
	if built.FormFill {
		t.Fatal("search field should use the free-text shape")
	}
	if !strings.Contains(built.User, "SESSION: Researching: python, asyncio, concurrency") {
		t.Fatalf("prompt missing SESSION line:\n%s", built.User)
	}
	if !strings.Contains(built.User, "QUERY: python async") {
		t.Fatalf("prompt missing QUERY line:\n%s", built.User)
	}
}

func TestEmptyFieldsOmitted(t *testing.T) {
	built := Build(Input{Query: "rust traits", Category: field.CategorySearch})
	for _, label := range []string{"SESSION:", "THREAD:", "TAB:", "HISTORY:", "PAGE:"} {
		if strings.Contains(built.User, label) {
			t.Errorf("empty field rendered: %s in\n%s", label, built.User)
		}
	}
}

func TestTabAndHistoryLineCaps(t *testing.T) {
	snap := ambient.Snapshot{
		TabTitles: []string{"one", "two", "three", "four"},
		Topics: []ambient.HistoryEntry{
			{Title: "h1"}, {Title: "h2"}, {Title: "h3"},
		},
	}
	built := Build(Input{Query: "x y", Category: field.CategorySearch, Snapshot: snap})
	if got := strings.Count(built.User, "TAB: "); got != maxTabLines {
		t.Errorf("TAB lines = %d, want %d", got, maxTabLines)
	}
	if got := strings.Count(built.User, "HISTORY: "); got != maxHistoryLines {
		t.Errorf("HISTORY lines = %d, want %d", got, maxHistoryLines)
	}
}

func TestLineTruncation(t *testing.T) {
	long := strings.Repeat("a", 500)
	built := Build(Input{Query: long, Category: field.CategorySearch})
	for _, l := range strings.Split(built.User, "\n") {
		if len(l) > capQuery+len("QUERY: ")+len("…") {
			t.Errorf("line exceeds cap: %d bytes", len(l))
		}
	}
	if !strings.Contains(built.User, "…") {
		t.Error("truncated line missing ellipsis marker")
	}
}

func TestFormFillShape(t *testing.T) {
	built := Build(Input{
		Query:      "Sta",
		Category:   field.CategoryJobTitle,
		Descriptor: field.Descriptor{NearbyLabel: "Job title"},
		Snapshot:   ambient.Snapshot{TabTitles: []string{"Ada Lovelace — Staff Engineer at AE | LinkedIn"}},
	})
	if !built.FormFill {
		t.Fatal("job_title should use the form-fill shape")
	}
	for _, want := range []string{"FIELD: job_title", "LABEL: Job title", "VALUE: Sta", "TAB: "} {
		if !strings.Contains(built.User, want) {
			t.Errorf("form-fill prompt missing %q:\n%s", want, built.User)
		}
	}
}

func TestDeviceFormFillOmitsContext(t *testing.T) {
	built := Build(Input{
		Query:    "Wind",
		Category: field.CategoryOS,
		Snapshot: ambient.Snapshot{TabTitles: []string{"whatever"}},
		Intent:   session.Intent{Summary: "Researching: something"},
	})
	if strings.Contains(built.User, "TAB: ") || strings.Contains(built.User, "SESSION: ") {
		t.Errorf("device field prompt should not carry ambient context:\n%s", built.User)
	}
}
