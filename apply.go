package pfsm

import (
	"strconv"

	"github.com/enetx/g"
)

// OutcomeKind classifies the result of evaluating an event.
type OutcomeKind uint8

const (
	// Success means a clause matched and the state moves to Outcome.State.
	Success OutcomeKind = iota
	// NoOp means the state already equals the only target of the event.
	NoOp
	// InvalidTransition means the event is not valid from the current state.
	InvalidTransition
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "Success"
	case NoOp:
		return "NoOp"
	case InvalidTransition:
		return "InvalidTransition"
	default:
		return "OutcomeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Outcome is the result of Apply. For Success, State is the next state; for
// NoOp and InvalidTransition it is the unchanged current state.
type Outcome[S State] struct {
	Kind  OutcomeKind
	State S
	Event Event
}

// Apply evaluates event against current using clauses in declaration order.
// The first clause whose sources contain current wins. When nothing matches,
// an event with exactly one clause whose target equals current is a NoOp;
// every other miss is an InvalidTransition, including a current state that
// equals one of the targets of a multi-clause event.
func Apply[S State](event Event, clauses g.Slice[Clause[S]], current S) Outcome[S] {
	for _, clause := range clauses {
		if clause.Matches(current) {
			return Outcome[S]{Kind: Success, State: clause.To, Event: event}
		}
	}

	if len(clauses) == 1 && clauses[0].To == current {
		return Outcome[S]{Kind: NoOp, State: current, Event: event}
	}

	return Outcome[S]{Kind: InvalidTransition, State: current, Event: event}
}

// Ok reports whether the outcome is a Success.
func (o Outcome[S]) Ok() bool { return o.Kind == Success }

// Err returns nil on Success and the matching error otherwise.
func (o Outcome[S]) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case NoOp:
		return &ErrNoOp[S]{Current: o.State}
	default:
		return &ErrInvalidTransition[S]{Current: o.State, Event: o.Event}
	}
}

// String renders the outcome in the form used by transition table snapshots.
func (o Outcome[S]) String() string {
	switch o.Kind {
	case Success:
		return "Ok(" + o.State.String() + ")"
	case NoOp:
		return "Err(NoOp { current: " + o.State.String() + " })"
	default:
		return "Err(InvalidTransition { current: " + o.State.String() + ", event: " +
			strconv.Quote(string(o.Event)) + " })"
	}
}
