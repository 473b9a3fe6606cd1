package locator

import "sync"

// Ranked is an ordered candidate list with a consumption cursor. The list
// itself never changes; Next only advances the cursor.
type Ranked struct {
	mu         sync.Mutex
	candidates []Candidate
	next       int
}

// NewRanked wraps candidates that are already in priority order.
func NewRanked(candidates []Candidate) *Ranked {
	c := make([]Candidate, len(candidates))
	copy(c, candidates)
	return &Ranked{candidates: c}
}

// Next returns the highest-priority candidate not yet consumed.
func (r *Ranked) Next() (Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.candidates) {
		return Candidate{}, ErrNoInstallationFound
	}
	c := r.candidates[r.next]
	r.next++
	return c, nil
}

// Remaining returns how many candidates Next can still yield.
func (r *Ranked) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.candidates) - r.next
}

// All returns every candidate in rank order, consumed or not.
func (r *Ranked) All() []Candidate {
	out := make([]Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}
