// Package menu implements the conversational menu: a per-identity state
// machine that answers registered members with tenant information.
package menu

import (
	"sync"

	"github.com/zulandar/shepherd/internal/directory"
	"github.com/zulandar/shepherd/internal/models"
)

// Phase is the position of one identity inside the conversation machine.
type Phase int

const (
	// PhaseInitial is the entry phase; no state is stored for it.
	PhaseInitial Phase = iota
	// PhaseAwaitingSelection means a numbered tenant list was sent and the
	// next message must pick an index.
	PhaseAwaitingSelection
	// PhaseSelected means a tenant is bound and menu commands are accepted.
	PhaseSelected
)

// State is the stored conversation state for one identity. Candidates is
// only populated in PhaseAwaitingSelection; Tenant may be nil when the
// bound tenant has no profile record.
type State struct {
	Phase       Phase
	Candidates  []directory.Membership
	PersonName  string
	TenantID    string
	TenantName  string
	Tenant      *models.Tenant
	MultiTenant bool // recorded at selection time, not refreshed
}

type stateFn func(cur *State) *State

type actor struct {
	queue chan stateFn
	state *State
}

// StateStore owns conversation state keyed by identity. Each identity gets a
// single-writer actor, so two messages from the same sender are processed in
// arrival order, never concurrently.
type StateStore struct {
	mu     sync.Mutex
	actors map[string]*actor
	wg     sync.WaitGroup
	closed bool
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{actors: make(map[string]*actor)}
}

// Do runs fn on the identity's state, serialized with every other Do for the
// same identity. fn receives the current state (nil when none) and returns
// the next; returning nil clears the slot. Do blocks until fn has run.
func (s *StateStore) Do(identity string, fn stateFn) {
	a := s.actorFor(identity)
	if a == nil {
		return
	}
	done := make(chan struct{})
	a.queue <- func(cur *State) *State {
		defer close(done)
		return fn(cur)
	}
	<-done
}

// Peek returns a copy of the identity's current state, or nil.
func (s *StateStore) Peek(identity string) *State {
	var snapshot *State
	s.Do(identity, func(cur *State) *State {
		if cur != nil {
			c := *cur
			snapshot = &c
		}
		return cur
	})
	return snapshot
}

// Close stops all actors. Pending work is drained before return.
func (s *StateStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, a := range s.actors {
		close(a.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *StateStore) actorFor(identity string) *actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	a, ok := s.actors[identity]
	if !ok {
		a = &actor{queue: make(chan stateFn, 32)}
		s.actors[identity] = a
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for fn := range a.queue {
				a.state = fn(a.state)
			}
		}()
	}
	return a
}
