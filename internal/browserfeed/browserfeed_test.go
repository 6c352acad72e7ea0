package browserfeed

import (
	"testing"

	"github.com/chromedp/cdproto/target"
)

func TestPageTargets(t *testing.T) {
	targets := []*target.Info{
		{Type: "page", URL: "https://go.dev/doc", Title: "Go docs"},
		{Type: "service_worker", URL: "https://go.dev/sw.js"},
		{Type: "page", URL: "devtools://devtools/bundled/inspector.html"},
		{Type: "page", URL: "chrome-extension://abc/background.html"},
		{Type: "page", URL: "https://news.example.com", Title: "News"},
	}
	pages := pageTargets(targets)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].Title != "Go docs" || pages[1].Title != "News" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}
