// Package session tracks the user's rolling research intent across a
// browsing session.
//
// The tracker keeps a bounded window of past query/result pairs and derives
// two strings from it on read: a topic summary ("Researching: …") from
// stopword-filtered token frequency, and a transition thread showing topic
// drift. State expires after an inactivity interval and is discarded, not
// merged: a stale session resets to empty before the new entry is appended.
package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// MaxEntries bounds the rolling window.
	MaxEntries = 10
	// InactivityTimeout expires the whole session.
	InactivityTimeout = 30 * time.Minute
	// summaryTokens is how many top-frequency tokens the summary carries.
	summaryTokens = 4
	// threadLength is how many recent distinct queries the thread shows.
	threadLength = 4
)

const stateKey = "session.state"

// Store is the injected persistence interface. The sqlite store implements
// it; tests use an in-memory map.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Entry is one completed query with the suggestions it produced.
type Entry struct {
	Query       string    `json:"query"`
	Suggestions []string  `json:"suggestions"`
	At          time.Time `json:"at"`
}

// State is the persisted session model.
type State struct {
	Entries      []Entry   `json:"entries"`
	LastActivity time.Time `json:"lastActivity"`
}

// Tracker owns session state behind a single mutex so the expiry-then-append
// update is atomic with respect to its own read. Racing stale and fresh
// completions serialize here instead of duplicating entries.
type Tracker struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
}

// NewTracker creates a tracker backed by store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// SetClock overrides the clock for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// load reads state from the store; a missing or corrupt record is an empty
// session, not an error worth failing a request over.
func (t *Tracker) load() State {
	raw, ok, err := t.store.Get(stateKey)
	if err != nil || !ok {
		return State{}
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}
	}
	return s
}

func (t *Tracker) save(s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if err := t.store.Set(stateKey, raw); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}
	return nil
}

// Record appends a completed query and its suggestion texts. Empty queries
// are ignored. If the session has gone inactive past the timeout the old
// entries are discarded first; expiry is monotonic, nothing is revived.
func (t *Tracker) Record(query string, suggestions []string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := t.load()
	if t.expired(s, now) {
		s = State{}
	}
	s.Entries = append(s.Entries, Entry{Query: query, Suggestions: suggestions, At: now})
	if len(s.Entries) > MaxEntries {
		s.Entries = s.Entries[len(s.Entries)-MaxEntries:]
	}
	s.LastActivity = now
	return t.save(s)
}

func (t *Tracker) expired(s State, now time.Time) bool {
	return len(s.Entries) > 0 && now.Sub(s.LastActivity) > InactivityTimeout
}

// Snapshot returns the current derived intent. An expired session reads as
// empty even before the next Record resets it.
func (t *Tracker) Snapshot() Intent {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.load()
	if t.expired(s, t.now()) {
		return Intent{}
	}
	return Intent{
		Summary: deriveSummary(s.Entries),
		Thread:  deriveThread(s.Entries),
		Entries: len(s.Entries),
	}
}

// PurgeExpired removes persisted state once the session has gone inactive
// past the timeout. Reads already treat expired state as empty; this just
// stops stale queries from sitting on disk. Returns true when state was
// removed.
func (t *Tracker) PurgeExpired() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.load()
	if !t.expired(s, t.now()) {
		return false, nil
	}
	if err := t.store.Delete(stateKey); err != nil {
		return false, fmt.Errorf("purge session state: %w", err)
	}
	return true, nil
}

// Clear resets the session immediately regardless of timestamps.
func (t *Tracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Delete(stateKey); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

// Intent is the derived view of the session handed to the prompt builder.
type Intent struct {
	Summary string
	Thread  string
	Entries int
}

// Empty reports whether there is any usable intent.
func (i Intent) Empty() bool {
	return i.Summary == "" && i.Thread == ""
}

// stopwords are dropped before frequency counting. Short function words
// only; domain terms always survive.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "does": true,
	"for": true, "from": true, "how": true, "i": true, "in": true, "is": true,
	"it": true, "my": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "what": true, "when": true, "where": true,
	"which": true, "why": true, "with": true, "you": true,
}

var tokenPattern = regexp.MustCompile(`[a-z0-9][a-z0-9_+#.-]*`)

// deriveSummary counts stopword-filtered token frequency across all entry
// queries and joins the top tokens. Idempotent for a given entry sequence;
// ties break by first appearance so recomputation is stable.
func deriveSummary(entries []Entry) string {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(e.Query), -1) {
			if stopwords[tok] || len(tok) < 2 {
				continue
			}
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}
	if len(order) == 0 {
		return ""
	}
	rank := make(map[string]int, len(order))
	for i, tok := range order {
		rank[tok] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return rank[order[i]] < rank[order[j]]
	})
	if len(order) > summaryTokens {
		order = order[:summaryTokens]
	}
	return "Researching: " + strings.Join(order, ", ")
}

// deriveThread joins the most recent distinct queries (adjacent repeats
// deduplicated) with a directional separator to show topic drift.
func deriveThread(entries []Entry) string {
	var queries []string
	for _, e := range entries {
		if n := len(queries); n > 0 && queries[n-1] == e.Query {
			continue
		}
		queries = append(queries, e.Query)
	}
	if len(queries) == 0 {
		return ""
	}
	if len(queries) > threadLength {
		queries = queries[len(queries)-threadLength:]
	}
	return strings.Join(queries, " -> ")
}
