// Package pfsm declares, evaluates and introspects the lifecycle state
// machines of protocol objects such as connections, streams and handshake
// phases.
//
// A machine is defined once per state type with Define, and evaluated through
// one EventFunc per event. Evaluation is synchronous, never blocks and never
// locks: a state value must be owned by one goroutine at a time (see
// SyncState for a mutex-guarded holder). Failed transitions leave the state
// untouched and return *ErrNoOp or *ErrInvalidTransition. It is built with
// types and utilities from the github.com/enetx/g library.
package pfsm

import (
	"runtime"
	"strconv"

	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// Machine is a compiled state machine definition. It is immutable and safe
// for concurrent use; the state values it operates on are not.
type Machine[S State] struct {
	name       string
	states     g.Slice[S]
	byName     g.Map[string, S]
	events     g.Slice[*event[S]]
	index      g.Map[Event, *event[S]]
	predicates g.Map[string, predicate[S]]
	tracer     Tracer[S]
	skip       int
}

// Name returns the name given to Define.
func (m *Machine[S]) Name() string { return m.name }

// States returns every state referenced by a clause, sorted by name.
func (m *Machine[S]) States() g.Slice[S] { return m.states.Clone() }

// Events returns the event names in declaration order.
func (m *Machine[S]) Events() g.Slice[Event] {
	events := make(g.Slice[Event], 0, len(m.events))
	for _, e := range m.events {
		events = append(events, e.name)
	}

	return events
}

// Clauses returns a copy of the clauses of the named event.
func (m *Machine[S]) Clauses(name Event) g.Slice[Clause[S]] {
	if e, ok := m.index[name]; ok {
		return e.clauses.Clone()
	}

	return nil
}

// Doc returns the documentation attached to the named event.
func (m *Machine[S]) Doc(name Event) g.String {
	if e, ok := m.index[name]; ok {
		return e.doc
	}

	return ""
}

// Parse resolves a state by its String form.
func (m *Machine[S]) Parse(name string) g.Option[S] {
	if s, ok := m.byName[name]; ok {
		return g.Some(s)
	}

	return g.None[S]()
}

// Lookup returns the callable bound to the named event, if declared.
func (m *Machine[S]) Lookup(name Event) g.Option[EventFunc[S]] {
	e, ok := m.index[name]
	if !ok {
		return g.None[EventFunc[S]]()
	}

	return g.Some(m.bind(e))
}

// Event returns the callable bound to the named event. It panics when the
// event is not declared, so bindings fail at startup.
func (m *Machine[S]) Event(name Event) EventFunc[S] {
	e, ok := m.index[name]
	if !ok {
		panic(&ErrUnknownEvent{Machine: m.name, Event: name})
	}

	return m.bind(e)
}

func (m *Machine[S]) bind(e *event[S]) EventFunc[S] {
	return func(state *S) error { return m.commit(e.name, e.clauses, state) }
}

// Fire applies the named event to *state.
func (m *Machine[S]) Fire(name Event, state *S) error {
	e, ok := m.index[name]
	if !ok {
		return &ErrUnknownEvent{Machine: m.name, Event: name}
	}

	return m.commit(e.name, e.clauses, state)
}

// Transition applies ad-hoc clauses to *state under the Anonymous event,
// with the same NoOp and InvalidTransition rules as a declared event. Clauses
// that Build would reject return *ErrMalformed and are never evaluated.
func (m *Machine[S]) Transition(state *S, clauses ...Clause[S]) error {
	if err := m.checkClauses(clauses); err != nil {
		return err
	}

	return m.commit(Anonymous, clauses, state)
}

func (m *Machine[S]) checkClauses(clauses []Clause[S]) error {
	if len(clauses) == 0 {
		return &ErrMalformed{Machine: m.name, Event: string(Anonymous), Reason: "transition has no clauses"}
	}

	for _, c := range clauses {
		if len(c.From) == 0 {
			return &ErrMalformed{Machine: m.name, Event: string(Anonymous), Reason: "clause has no source states"}
		}
	}

	return nil
}

// Predicate returns the named guard. It panics when the predicate is not
// declared.
func (m *Machine[S]) Predicate(name string) Predicate[S] {
	p, ok := m.predicates[name]
	if !ok {
		panic(&ErrMalformed{Machine: m.name, Event: name, Reason: "predicate is not declared"})
	}

	set := p.set

	return func(state S) bool { return set.Contains(state) }
}

// Is evaluates the named predicate against state. Unknown predicates are false.
func (m *Machine[S]) Is(name string, state S) bool {
	p, ok := m.predicates[name]

	return ok && p.set.Contains(state)
}

// Members returns a copy of the states of the named predicate.
func (m *Machine[S]) Members(name string) g.Slice[S] {
	if p, ok := m.predicates[name]; ok {
		return p.states.Clone()
	}

	return nil
}

// Predicates returns the declared predicate names, sorted.
func (m *Machine[S]) Predicates() g.Slice[string] {
	names := make(g.Slice[string], 0, len(m.predicates))
	for name := range m.predicates {
		names = append(names, name)
	}

	names.SortBy(cmp.Cmp)

	return names
}

// commit is the single mutation path. The state is written before the
// tracer runs, and only on success.
func (m *Machine[S]) commit(name Event, clauses g.Slice[Clause[S]], state *S) error {
	prev := *state

	outcome := Apply(name, clauses, prev)
	if !outcome.Ok() {
		return outcome.Err()
	}

	*state = outcome.State

	if m.tracer != nil {
		m.emit(name, prev, outcome.State)
	}

	return nil
}

// emit must be called directly from commit, which is called directly from
// the exported entry points: the caller frame is three levels up.
func (m *Machine[S]) emit(name Event, prev, next S) {
	defer func() { _ = recover() }()

	var location string
	if _, file, line, ok := runtime.Caller(3 + m.skip); ok {
		location = file + ":" + strconv.Itoa(line)
	}

	m.tracer.Transition(Record[S]{
		Machine:  m.name,
		Event:    name,
		Prev:     prev,
		Next:     next,
		Location: location,
	})
}

func sortStates[S State](states g.Slice[S]) g.Slice[S] {
	states.SortBy(func(a, b S) cmp.Ordering { return cmp.Cmp(a.String(), b.String()) })
	return states
}
