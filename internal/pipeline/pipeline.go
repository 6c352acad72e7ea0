// Package pipeline chains the suggestion components: classify the field,
// assemble ambient context, short-circuit on deterministic candidates,
// otherwise build a prompt and call inference under the rate limiter, then
// validate the response.
//
// Every internal failure resolves to a well-formed, possibly empty
// suggest.Result. The one exception is a missing API credential, which is a
// configuration error and surfaces as ErrNoCredential.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsense/fieldsense/internal/ambient"
	"github.com/fieldsense/fieldsense/internal/candidate"
	"github.com/fieldsense/fieldsense/internal/devlog"
	"github.com/fieldsense/fieldsense/internal/field"
	"github.com/fieldsense/fieldsense/internal/inference"
	"github.com/fieldsense/fieldsense/internal/prompt"
	"github.com/fieldsense/fieldsense/internal/ratelimit"
	"github.com/fieldsense/fieldsense/internal/session"
	"github.com/fieldsense/fieldsense/internal/suggest"
)

// Completer is what the pipeline needs from the inference layer. Satisfied
// by *inference.Client; tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, req inference.Request) (string, error)
}

// Options carries the model call parameters from config.
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Request is one suggestion request for a focused field.
type Request struct {
	Descriptor field.Descriptor      `json:"descriptor"`
	Value      string                `json:"value"`
	Feed       ambient.Feed          `json:"feed"`
	Env        candidate.Environment `json:"env"`
}

// Pipeline wires the components for one extension instance.
type Pipeline struct {
	tracker   *session.Tracker
	limiter   *ratelimit.Limiter
	client    Completer
	opts      Options
	blocklist func() ambient.Blocklist
	now       func() time.Time
}

// New assembles a pipeline. client may be nil when no credential is
// configured; deterministic candidates still work, inference requests fail
// with ErrNoCredential.
func New(tracker *session.Tracker, limiter *ratelimit.Limiter, client Completer, opts Options, blocklist func() ambient.Blocklist) *Pipeline {
	if blocklist == nil {
		blocklist = func() ambient.Blocklist { return ambient.Blocklist{} }
	}
	return &Pipeline{
		tracker:   tracker,
		limiter:   limiter,
		client:    client,
		opts:      opts,
		blocklist: blocklist,
		now:       time.Now,
	}
}

// Suggest runs the full chain for one request.
func (p *Pipeline) Suggest(ctx context.Context, req Request) (suggest.Result, error) {
	id := uuid.NewString()[:8]
	cat := field.Classify(req.Descriptor)
	devlog.Printf("[pipeline %s] field %q classified %s", id, req.Descriptor.Name, cat)

	// Nothing derived from a sensitive field ever leaves the classifier.
	if cat == field.CategorySensitive {
		return suggest.Empty("no suggestions for this field"), nil
	}

	snap := ambient.BuildSnapshot(req.Feed, p.blocklist(), p.now())

	if cands := candidate.Synthesize(cat, req.Env, candidateTabs(snap)); len(cands) > 0 {
		devlog.Printf("[pipeline %s] form-fill satisfied locally (%d candidates)", id, len(cands))
		return fromCandidates(cands), nil
	}

	if p.client == nil {
		return suggest.Result{}, inference.ErrNoCredential
	}

	if !p.limiter.Allow() {
		reason := fmt.Sprintf("rate limited locally: %d left, next slot in %s",
			p.limiter.Remaining(), p.limiter.NextSlot().Round(time.Second))
		return suggest.Empty(reason), nil
	}

	built := prompt.Build(prompt.Input{
		Query:      req.Value,
		Category:   cat,
		Descriptor: req.Descriptor,
		Snapshot:   snap,
		Intent:     p.tracker.Snapshot(),
	})

	raw, err := p.client.Complete(ctx, inference.Request{
		System:      built.System,
		User:        built.User,
		Model:       p.opts.Model,
		Temperature: p.opts.Temperature,
		TopP:        p.opts.TopP,
		MaxTokens:   p.opts.MaxTokens,
	})
	if err != nil {
		devlog.Printf("[pipeline %s] inference failed: %v", id, err)
		return suggest.Empty(fmt.Sprintf("inference unavailable: %v", err)), nil
	}

	result := suggest.Parse(raw)
	result.IsFormFill = built.FormFill
	return result, nil
}

// Commit records an accepted (non-stale) result into the session tracker.
// Form-fill results do not shape research intent.
func (p *Pipeline) Commit(query string, result suggest.Result) {
	if result.IsFormFill || len(result.Suggestions) == 0 {
		return
	}
	texts := make([]string, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		texts = append(texts, s.Text)
	}
	if err := p.tracker.Record(query, texts); err != nil {
		devlog.Printf("[pipeline] session record failed: %v", err)
	}
}

// Quota reports the local limiter state for UI purposes.
func (p *Pipeline) Quota() (remaining int, nextSlot time.Duration) {
	return p.limiter.Remaining(), p.limiter.NextSlot()
}

// ClearSession resets the session intent immediately.
func (p *Pipeline) ClearSession() error {
	return p.tracker.Clear()
}

// PurgeExpiredSession drops expired session state from the store. Run
// periodically by the server's janitor.
func (p *Pipeline) PurgeExpiredSession() (bool, error) {
	return p.tracker.PurgeExpired()
}

// candidateTabs narrows the sanitized snapshot tabs to the synthesizer's
// input shape. The snapshot has already applied the sensitive-domain filter.
func candidateTabs(snap ambient.Snapshot) []candidate.Tab {
	tabs := make([]candidate.Tab, 0, len(snap.Tabs))
	for _, t := range snap.Tabs {
		tabs = append(tabs, candidate.Tab{Title: t.Title, URL: t.URL})
	}
	return tabs
}

// fromCandidates shapes deterministic candidates into the final result.
func fromCandidates(cands []candidate.Candidate) suggest.Result {
	res := suggest.Result{
		Reason:      "filled from local context, no inference needed",
		Suggestions: []suggest.Suggestion{},
		IsFormFill:  true,
	}
	for _, c := range cands {
		res.Suggestions = append(res.Suggestions, suggest.Suggestion{
			Text:       c.Value,
			Derivation: "Local: " + c.Source,
		})
		if len(res.Suggestions) == suggest.MaxSuggestions {
			break
		}
	}
	return res
}
