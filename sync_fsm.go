package pfsm

import (
	"sync"

	"github.com/enetx/g"
)

// SyncState owns one state value of a machine and serializes every access to
// it with a sync.RWMutex, for protocol objects shared between goroutines.
// It also keeps the sequence of states the value has been through.
type SyncState[S State] struct {
	machine *Machine[S]
	current S
	history g.Slice[S]
	mu      sync.RWMutex
}

// NewSyncState creates a holder starting in initial.
func NewSyncState[S State](machine *Machine[S], initial S) *SyncState[S] {
	return &SyncState[S]{
		machine: machine,
		current: initial,
		history: g.Slice[S]{initial},
	}
}

// Machine returns the definition the holder evaluates.
func (ss *SyncState[S]) Machine() *Machine[S] { return ss.machine }

// Fire is the thread-safe version of Machine.Fire.
// It applies the named event to the held state.
func (ss *SyncState[S]) Fire(name Event) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	e, ok := ss.machine.index[name]
	if !ok {
		return &ErrUnknownEvent{Machine: ss.machine.name, Event: name}
	}

	if err := ss.machine.commit(e.name, e.clauses, &ss.current); err != nil {
		return err
	}

	ss.history.Push(ss.current)

	return nil
}

// Transition is the thread-safe version of Machine.Transition.
func (ss *SyncState[S]) Transition(clauses ...Clause[S]) error {
	if err := ss.machine.checkClauses(clauses); err != nil {
		return err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if err := ss.machine.commit(Anonymous, clauses, &ss.current); err != nil {
		return err
	}

	ss.history.Push(ss.current)

	return nil
}

// Current returns the held state.
func (ss *SyncState[S]) Current() S {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.current
}

// Is evaluates the named predicate of the machine against the held state.
func (ss *SyncState[S]) Is(name string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.machine.Is(name, ss.current)
}

// History returns a copy of the states the value has been through,
// starting with the initial one.
func (ss *SyncState[S]) History() g.Slice[S] {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.history.Clone()
}
