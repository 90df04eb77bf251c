package pfsm

import (
	"fmt"

	"github.com/enetx/g"
)

type (
	// State is the constraint satisfied by a domain state enumeration.
	// Values are compared with == and duplicated by plain assignment.
	State interface {
		comparable
		fmt.Stringer
	}

	// Event names an operation that moves a state machine between states.
	Event g.String

	// EventFunc is the callable bound to one event. It overwrites *state on
	// success and leaves it untouched otherwise.
	EventFunc[S State] func(state *S) error

	// Predicate is a read-only guard over a state value.
	Predicate[S State] func(state S) bool

	// Clause is one "sources => target" rule of an event.
	Clause[S State] struct {
		From g.Slice[S]
		To   S
	}

	// Sources is the left-hand side of a clause under construction.
	Sources[S State] g.Slice[S]

	// event is a compiled event: its name and ordered clauses.
	event[S State] struct {
		name    Event
		doc     g.String
		clauses g.Slice[Clause[S]]
	}
)

// Anonymous marks transitions that were not issued through a named event.
const Anonymous Event = "_"

// From starts a clause matching any of the given states.
func From[S State](states ...S) Sources[S] { return Sources[S](states) }

// To completes the clause with its target state.
func (s Sources[S]) To(target S) Clause[S] {
	return Clause[S]{From: g.Slice[S](s).Clone(), To: target}
}

// Matches reports whether state is one of the clause's sources.
func (c Clause[S]) Matches(state S) bool {
	for _, from := range c.From {
		if from == state {
			return true
		}
	}

	return false
}

// Is returns a predicate testing membership in states.
func Is[S State](states ...S) Predicate[S] {
	set := g.NewSet[S]()
	set.Insert(states...)

	return func(state S) bool { return set.Contains(state) }
}
