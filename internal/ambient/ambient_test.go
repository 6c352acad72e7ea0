package ambient

import (
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuildSnapshotTabFiltering(t *testing.T) {
	feed := Feed{
		OtherTabs: []TabInfo{
			{Title: "Current page", URL: "https://example.com", Active: true},
			{Title: "My Bank", URL: "https://mybank.com/accounts"},
			{Title: "Sign in", URL: "https://example.com/login"},
			{Title: "Go docs", URL: "https://go.dev/doc"},
			{Title: "", URL: "https://empty.example.com"},
		},
	}
	snap := BuildSnapshot(feed, Blocklist{}, testNow)
	if len(snap.Tabs) != 1 {
		t.Fatalf("got %d tabs, want 1: %+v", len(snap.Tabs), snap.TabTitles)
	}
	if snap.TabTitles[0] != "Go docs" {
		t.Errorf("surviving tab = %q, want Go docs", snap.TabTitles[0])
	}
}

func TestBuildSnapshotTabCap(t *testing.T) {
	var feed Feed
	for i := 0; i < 50; i++ {
		feed.OtherTabs = append(feed.OtherTabs, TabInfo{
			Title: fmt.Sprintf("Tab %d", i),
			URL:   fmt.Sprintf("https://example.com/%d", i),
		})
	}
	snap := BuildSnapshot(feed, Blocklist{}, testNow)
	if len(snap.Tabs) != MaxTabs {
		t.Fatalf("got %d tabs, want cap %d", len(snap.Tabs), MaxTabs)
	}
}

func TestBuildSnapshotHistoryWindowAndCap(t *testing.T) {
	var feed Feed
	// 500 in-window entries plus some stale ones; cap must hold.
	for i := 0; i < 500; i++ {
		feed.History = append(feed.History, HistoryEntry{
			Title:         fmt.Sprintf("Page %d", i),
			URL:           fmt.Sprintf("https://example.com/p/%d", i),
			VisitCount:    1,
			LastVisitTime: testNow.Add(-time.Minute),
		})
	}
	feed.History = append(feed.History, HistoryEntry{
		Title:         "Old page",
		URL:           "https://example.com/old",
		VisitCount:    1,
		LastVisitTime: testNow.Add(-3 * time.Hour),
	})
	snap := BuildSnapshot(feed, Blocklist{}, testNow)
	if len(snap.Recent) != MaxNavEntries {
		t.Fatalf("got %d recent entries, want cap %d", len(snap.Recent), MaxNavEntries)
	}
	for _, e := range snap.Recent {
		if e.Title == "Old page" {
			t.Error("entry outside the 2h window survived")
		}
	}
}

func TestBuildSnapshotTopics(t *testing.T) {
	feed := Feed{History: []HistoryEntry{
		{Title: "Rarely visited", URL: "https://a.example.com", VisitCount: 1, LastVisitTime: testNow.Add(-24 * time.Hour)},
		{Title: "Daily read", URL: "https://b.example.com", VisitCount: 40, LastVisitTime: testNow.Add(-24 * time.Hour)},
		{Title: "Weekly read", URL: "https://c.example.com", VisitCount: 5, LastVisitTime: testNow.Add(-48 * time.Hour)},
		{Title: "Last month", URL: "https://d.example.com", VisitCount: 90, LastVisitTime: testNow.Add(-10 * 24 * time.Hour)},
	}}
	snap := BuildSnapshot(feed, Blocklist{}, testNow)
	if len(snap.Topics) != 2 {
		t.Fatalf("got %d topics, want 2: %+v", len(snap.Topics), snap.Topics)
	}
	if snap.Topics[0].Title != "Daily read" || snap.Topics[1].Title != "Weekly read" {
		t.Errorf("topics not sorted by visit count desc: %+v", snap.Topics)
	}
}

func TestBuildSnapshotPlaceholderTitlesDropped(t *testing.T) {
	feed := Feed{History: []HistoryEntry{
		{Title: "New Tab", URL: "https://x.example.com", VisitCount: 9, LastVisitTime: testNow.Add(-time.Minute)},
	}}
	snap := BuildSnapshot(feed, Blocklist{}, testNow)
	if len(snap.Recent) != 0 {
		t.Fatalf("placeholder title survived: %+v", snap.Recent)
	}
}

func TestBlocklistExtraDomains(t *testing.T) {
	bl := Blocklist{Extra: []string{"intranet.corp"}}
	if !bl.Blocked("https://intranet.corp/wiki") {
		t.Error("extra blocklist entry not applied")
	}
	if bl.Blocked("https://go.dev") {
		t.Error("go.dev should not be blocked")
	}
}

func TestBuildSnapshotHeadingsCap(t *testing.T) {
	feed := Feed{CurrentPage: PageInfo{
		Title:    "Docs",
		Headings: []string{"a", "b", "c", "d", "e", "f", "g"},
	}}
	snap := BuildSnapshot(feed, Blocklist{}, testNow)
	if len(snap.PageHeadings) != MaxHeadings {
		t.Fatalf("got %d headings, want %d", len(snap.PageHeadings), MaxHeadings)
	}
}
