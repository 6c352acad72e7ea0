// Package ambient assembles the bounded, privacy-filtered context snapshot
// for one suggestion request.
//
// The raw feed (current page, open tabs, navigation history) is supplied by
// the host — the extension or the local DevTools feed — already scoped to
// what the host chose to expose. This package still applies its own
// filtering: the sensitive-domain blocklist, recency windows and hard caps.
// Nothing unfiltered is visible downstream of BuildSnapshot.
package ambient

import (
	"sort"
	"strings"
	"time"
)

// Caps and windows. Fixed by design so snapshot size is bounded no matter
// how much the user has open.
const (
	MaxTabs        = 5
	MaxNavEntries  = 15
	MaxTopics      = 5
	NavWindow      = 2 * time.Hour
	TopicWindow    = 7 * 24 * time.Hour
	MinTopicVisits = 3
	MaxHeadings    = 5
)

// PageInfo describes the page hosting the focused field.
type PageInfo struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Headings []string `json:"headings"`
}

// TabInfo is one open tab as reported by the host.
type TabInfo struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// HistoryEntry is one navigation-history record as reported by the host.
type HistoryEntry struct {
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	VisitCount    int       `json:"visitCount"`
	LastVisitTime time.Time `json:"lastVisitTime"`
}

// Feed is the raw denormalized input for one snapshot.
type Feed struct {
	CurrentPage PageInfo       `json:"currentPage"`
	OtherTabs   []TabInfo      `json:"otherTabs"`
	History     []HistoryEntry `json:"history"`
}

// Snapshot is the sanitized context bundle handed to the prompt builder.
// Built fresh per request, never persisted.
type Snapshot struct {
	PageTitle    string
	PageURL      string
	PageHeadings []string
	TabTitles    []string
	Tabs         []TabInfo
	Recent       []HistoryEntry
	Topics       []HistoryEntry
}

// sensitiveDomainKeywords block a tab or history URL from the snapshot when
// any of them appears in the URL. Deliberately coarse: a false positive
// costs one context line, a false negative leaks a banking tab title.
var sensitiveDomainKeywords = []string{
	"bank", "banking", "login", "signin", "sign-in", "auth",
	"password", "payment", "checkout", "billing", "account",
	"wallet", "paypal", "healthcare", "medical", "insurance",
}

// Blocklist decides which URLs are excluded from ambient context. The zero
// value uses only the built-in keyword list; extra domains come from config.
type Blocklist struct {
	Extra []string
}

// Blocked reports whether rawURL must be excluded from the snapshot.
func (b Blocklist) Blocked(rawURL string) bool {
	u := strings.ToLower(rawURL)
	for _, kw := range sensitiveDomainKeywords {
		if strings.Contains(u, kw) {
			return true
		}
	}
	for _, kw := range b.Extra {
		if kw != "" && strings.Contains(u, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// BuildSnapshot filters and bounds the raw feed. now is injected for
// deterministic tests.
func BuildSnapshot(feed Feed, bl Blocklist, now time.Time) Snapshot {
	snap := Snapshot{
		PageTitle: strings.TrimSpace(feed.CurrentPage.Title),
		PageURL:   feed.CurrentPage.URL,
	}
	for _, h := range feed.CurrentPage.Headings {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		snap.PageHeadings = append(snap.PageHeadings, h)
		if len(snap.PageHeadings) == MaxHeadings {
			break
		}
	}

	for _, tab := range feed.OtherTabs {
		if tab.Active || strings.TrimSpace(tab.Title) == "" {
			continue
		}
		if bl.Blocked(tab.URL) {
			continue
		}
		snap.Tabs = append(snap.Tabs, tab)
		snap.TabTitles = append(snap.TabTitles, strings.TrimSpace(tab.Title))
		if len(snap.Tabs) == MaxTabs {
			break
		}
	}

	navCutoff := now.Add(-NavWindow)
	topicCutoff := now.Add(-TopicWindow)
	for _, h := range feed.History {
		title := strings.TrimSpace(h.Title)
		if title == "" || isPlaceholderTitle(title) || bl.Blocked(h.URL) {
			continue
		}
		if h.LastVisitTime.After(navCutoff) && len(snap.Recent) < MaxNavEntries {
			snap.Recent = append(snap.Recent, h)
		}
		if h.LastVisitTime.After(topicCutoff) && h.VisitCount >= MinTopicVisits {
			snap.Topics = append(snap.Topics, h)
		}
	}

	sort.SliceStable(snap.Topics, func(i, j int) bool {
		return snap.Topics[i].VisitCount > snap.Topics[j].VisitCount
	})
	if len(snap.Topics) > MaxTopics {
		snap.Topics = snap.Topics[:MaxTopics]
	}
	return snap
}

// isPlaceholderTitle drops titles the browser substitutes when a page never
// reported one.
func isPlaceholderTitle(title string) bool {
	switch strings.ToLower(title) {
	case "new tab", "untitled", "blank page", "about:blank", "loading...", "loading…":
		return true
	}
	return false
}
