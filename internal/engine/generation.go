package engine

import (
	"errors"
	"sync"
)

// ErrStaleRender is returned for a render that finished after a newer render
// for the same target was requested. Its output must be discarded.
var ErrStaleRender = errors.New("render superseded by a newer request")

// Tracker hands out generation tokens scoped per target. Tokens are drawn
// from one monotonic counter, so they never repeat even after a target is
// forgotten.
type Tracker struct {
	mu      sync.Mutex
	last    uint64
	targets map[string]*targetState
}

type targetState struct {
	gen    uint64
	active int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{targets: make(map[string]*targetState)}
}

// Next supersedes every earlier token for target. Each call must be paired
// with Done once the render finished.
func (t *Tracker) Next(target string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.targets[target]
	if !ok {
		st = &targetState{}
		t.targets[target] = st
	}
	t.last++
	st.gen = t.last
	st.active++
	return st.gen
}

// IsCurrent reports whether gen is still the newest token for target.
func (t *Tracker) IsCurrent(target string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.targets[target]
	return ok && st.gen == gen
}

// Done releases one token of target. Targets with no render in flight are
// dropped.
func (t *Tracker) Done(target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.targets[target]
	if !ok {
		return
	}
	st.active--
	if st.active <= 0 {
		delete(t.targets, target)
	}
}

// Len returns the number of targets with a render in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.targets)
}

// Slot holds the newest surfaced result for one target. Results carrying an
// older generation than the one already held are rejected.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	result *Result
}

// Offer stores r if its generation is newer than the held one.
func (s *Slot) Offer(r *Result) bool {
	if r == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Generation <= s.gen {
		return false
	}
	s.gen = r.Generation
	s.result = r
	return true
}

// Current returns the held result, or nil.
func (s *Slot) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
