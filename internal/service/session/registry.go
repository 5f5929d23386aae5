package session

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Session is a point-in-time copy of a caller's session.
type Session struct {
	Identity      string    `json:"identity"`
	SequenceIndex int       `json:"sequenceIndex"`
	State         State     `json:"state"`
	Retries       int       `json:"retries"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type entry struct {
	Session
	// requeue remembers a webhook that arrived while PROCESSING.
	requeue bool
	// touched orders due sessions; it increases on every transition.
	touched uint64
}

// Registry is the authoritative in-memory mapping from caller identity to
// session. Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE ──MarkRequested──→ PENDING ──TryStart──→ PROCESSING
//	                           ↑                     │
//	AWAITING_RETRY ←──Retry────┼─────────────────────┤
//	      │                    │                     ├──Complete──→ IDLE (index+1)
//	      └──MarkRequested/TryStart                  └──Fail──────→ IDLE
//
// Every transition is a compare-and-set under a single lock, so the scan and
// concurrent webhooks can never start two cycles for one caller.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
	clock    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// GetOrCreate returns the session for identity, creating it in IDLE with
// sequence index 0 if absent. The bool reports whether it was created.
func (r *Registry) GetOrCreate(identity string) (Session, bool, error) {
	if identity == "" {
		return Session{}, false, ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[identity]; ok {
		return e.Session, false, nil
	}
	now := r.now()
	e := &entry{Session: Session{
		Identity:  identity,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	r.touch(e)
	r.sessions[identity] = e
	return e.Session, true, nil
}

// MarkRequested records that the caller asked for work.
// IDLE and AWAITING_RETRY move to PENDING. PENDING is unchanged. PROCESSING
// is unchanged, but the request is remembered and the session returns to
// PENDING when the in-flight cycle ends.
func (r *Registry) MarkRequested(identity string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[identity]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownSession, identity)
	}

	switch e.State {
	case StateIdle, StateAwaitingRetry:
		e.State = StatePending
		e.Retries = 0
		e.UpdatedAt = r.now()
		r.touch(e)
	case StateProcessing:
		e.requeue = true
	}
	return e.Session, nil
}

// Due returns identities in PENDING or AWAITING_RETRY, least recently
// transitioned first. A caller that just finished a retry sorts behind one
// that has been waiting for a slot, so a scan that runs out of slots never
// starves the tail.
func (r *Registry) Due() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*entry
	for _, e := range r.sessions {
		if e.State.IsDue() {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].touched < due[j].touched })

	ids := make([]string, len(due))
	for i, e := range due {
		ids[i] = e.Identity
	}
	return ids
}

// TryStart atomically moves a due session to PROCESSING. It returns false if
// the session is unknown or not due, including when a cycle is already in
// flight.
func (r *Registry) TryStart(identity string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[identity]
	if !ok || !e.State.IsDue() {
		return Session{}, false
	}
	e.State = StateProcessing
	e.UpdatedAt = r.now()
	r.touch(e)
	return e.Session, true
}

// Complete ends a successful cycle: the sequence index advances by one and
// the session returns to IDLE.
func (r *Registry) Complete(identity string) (Session, error) {
	return r.finish(identity, func(e *entry) {
		e.SequenceIndex++
		e.Retries = 0
		e.State = StateIdle
	})
}

// Retry ends a cycle whose recording was not found. The sequence index is
// unchanged and the session becomes AWAITING_RETRY, or PENDING with a fresh
// retry count if a webhook arrived during the cycle.
func (r *Registry) Retry(identity string) (Session, error) {
	return r.finish(identity, func(e *entry) {
		e.Retries++
		e.State = StateAwaitingRetry
	})
}

// Fail abandons a cycle. The sequence index is unchanged and the session
// returns to IDLE.
func (r *Registry) Fail(identity string) (Session, error) {
	return r.finish(identity, func(e *entry) {
		e.Retries = 0
		e.State = StateIdle
	})
}

func (r *Registry) finish(identity string, apply func(e *entry)) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[identity]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownSession, identity)
	}
	if e.State != StateProcessing {
		return e.Session, fmt.Errorf("%w: %s is %s, not PROCESSING", ErrInvalidTransition, identity, e.State)
	}

	apply(e)
	if e.requeue {
		// Same effect as MarkRequested arriving after the cycle.
		e.State = StatePending
		e.Retries = 0
		e.requeue = false
	}
	e.UpdatedAt = r.now()
	r.touch(e)
	return e.Session, nil
}

func (r *Registry) touch(e *entry) {
	r.clock++
	e.touched = r.clock
}

// Get returns the session for identity.
func (r *Registry) Get(identity string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[identity]
	if !ok {
		return Session{}, false
	}
	return e.Session, true
}

// Snapshot returns copies of all sessions sorted by identity.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.Session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// CountByState returns the number of sessions in each state, keyed by name.
func (r *Registry) CountByState() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[string]int{
		StateIdle.String():          0,
		StatePending.String():       0,
		StateProcessing.String():    0,
		StateAwaitingRetry.String(): 0,
	}
	for _, e := range r.sessions {
		counts[e.State.String()]++
	}
	return counts
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reclaim removes IDLE sessions not updated within idleFor and returns how
// many were removed. A non-positive idleFor removes nothing.
//
// A reclaimed caller starts again at sequence index 0 on the next webhook.
func (r *Registry) Reclaim(idleFor time.Duration) int {
	if idleFor <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idleFor)
	removed := 0
	for id, e := range r.sessions {
		if e.State == StateIdle && !e.requeue && e.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
