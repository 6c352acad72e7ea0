package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/fieldsense/fieldsense/internal/devlog"
	"github.com/fieldsense/fieldsense/internal/field"
	"github.com/fieldsense/fieldsense/internal/suggest"
)

// FlowState is the per-field edit state machine.
type FlowState int

const (
	StateIdle FlowState = iota
	StateDebouncing
	StateAwaitingInference
	StateDisplaying
	StateDismissed
)

// Debounce delays per field kind. Short-answer fields respond faster than
// free-text surfaces, where the user is still composing.
const (
	FormFillDelay = 300 * time.Millisecond
	FreeTextDelay = 600 * time.Millisecond
)

// Flow debounces keystrokes for one field and enforces last-edit-wins.
//
// Every keystroke re-arms the timer; the pipeline runs only once the timer
// fires uninterrupted. Two invocations may race when a keystroke lands while
// a request is in flight: on completion each request compares the live field
// value against the value it was generated for and a mismatch is discarded
// unconditionally. The in-flight call is not aborted, its result just never
// surfaces.
type Flow struct {
	mu       sync.Mutex
	pipeline *Pipeline
	deliver  func(suggest.Result)

	state FlowState
	timer *time.Timer
	req   Request

	// delay overrides delayFor when non-zero. Tests use it.
	delay time.Duration
}

// NewFlow creates a flow for one field. deliver receives every accepted
// result; it is called without the flow lock held.
func NewFlow(p *Pipeline, deliver func(suggest.Result)) *Flow {
	return &Flow{pipeline: p, deliver: deliver, state: StateIdle}
}

// State returns the current flow state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Update handles a keystroke: the latest request replaces any pending one
// and the debounce timer restarts.
func (f *Flow) Update(req Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req = req
	if f.timer != nil {
		f.timer.Stop()
	}
	if f.state != StateAwaitingInference {
		f.state = StateDebouncing
	}
	d := f.delay
	if d == 0 {
		d = delayFor(req.Descriptor)
	}
	f.timer = time.AfterFunc(d, f.fire)
}

// Dismiss drops any pending timer and displayed suggestions.
func (f *Flow) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.state = StateDismissed
}

// fire runs the pipeline for the request captured at timer expiry.
func (f *Flow) fire() {
	f.mu.Lock()
	if f.state == StateDismissed {
		// Dismiss won the race after the timer fired but before we got
		// the lock; the pipeline must not run.
		f.mu.Unlock()
		return
	}
	req := f.req
	f.state = StateAwaitingInference
	f.mu.Unlock()

	result, err := f.pipeline.Suggest(context.Background(), req)
	if err != nil {
		// Configuration errors surface as a reason so the overlay can
		// point at settings instead of showing nothing silently.
		result = suggest.Empty("not configured: " + err.Error())
	}
	f.complete(req.Value, result)
}

// complete applies the stale-result rule and delivers.
func (f *Flow) complete(generatedFor string, result suggest.Result) {
	f.mu.Lock()
	if f.req.Value != generatedFor {
		// A newer edit happened while this request was in flight.
		f.mu.Unlock()
		devlog.Printf("[flow] stale result for %q discarded", generatedFor)
		return
	}
	if f.state == StateDismissed {
		f.mu.Unlock()
		return
	}
	f.state = StateDisplaying
	f.mu.Unlock()

	f.pipeline.Commit(generatedFor, result)
	if f.deliver != nil {
		f.deliver(result)
	}
}

// delayFor picks the debounce delay by field kind.
func delayFor(d field.Descriptor) time.Duration {
	if field.Classify(d).FormFill() {
		return FormFillDelay
	}
	return FreeTextDelay
}
