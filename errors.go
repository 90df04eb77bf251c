package pfsm

import (
	"errors"
	"fmt"
)

var (
	// ErrKindNoOp matches every *ErrNoOp through errors.Is, whatever its state type.
	ErrKindNoOp = errors.New("pfsm: no-op transition")
	// ErrKindInvalid matches every *ErrInvalidTransition through errors.Is.
	ErrKindInvalid = errors.New("pfsm: invalid transition")
	// ErrRestore is returned when a snapshot cannot be restored into a SyncState.
	ErrRestore = errors.New("pfsm: cannot restore state snapshot")
)

// ErrNoOp is returned when an event is requested while the state already equals
// the single target that event would establish. Callers usually treat it as
// benign, e.g. a redundant close.
type ErrNoOp[S State] struct {
	Current S
}

func (e *ErrNoOp[S]) Error() string {
	return fmt.Sprintf("pfsm: state is already set to %s", e.Current)
}

// Is makes errors.Is(err, ErrKindNoOp) succeed.
func (e *ErrNoOp[S]) Is(target error) bool { return target == ErrKindNoOp }

// ErrInvalidTransition is returned when no clause of the event matches the
// current state. It signals a protocol violation or a caller bug and is
// usually fatal for the owning object.
type ErrInvalidTransition[S State] struct {
	Current S
	Event   Event
}

func (e *ErrInvalidTransition[S]) Error() string {
	return fmt.Sprintf("pfsm: invalid event %q for state %s", e.Event, e.Current)
}

// Is makes errors.Is(err, ErrKindInvalid) succeed.
func (e *ErrInvalidTransition[S]) Is(target error) bool { return target == ErrKindInvalid }

// ErrMalformed is returned by Builder.Build when the definition cannot be
// compiled. It is a startup error, never a runtime outcome.
type ErrMalformed struct {
	// Machine is the name given to Define.
	Machine string
	// Event is the offending event or predicate name. It may be empty.
	Event string
	// Reason describes the problem.
	Reason string
}

func (e *ErrMalformed) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("pfsm: malformed machine %q: %q: %s", e.Machine, e.Event, e.Reason)
	}

	return fmt.Sprintf("pfsm: malformed machine %q: %s", e.Machine, e.Reason)
}

// ErrUnknownEvent is returned when an event is fired by a name the machine
// does not declare.
type ErrUnknownEvent struct {
	Machine string
	Event   Event
}

func (e *ErrUnknownEvent) Error() string {
	return fmt.Sprintf("pfsm: machine %q has no event %q", e.Machine, e.Event)
}

// ErrUnknownState is returned when a state name cannot be resolved, for
// example while unmarshaling. This prevents adopting an undeclared state.
type ErrUnknownState struct {
	State string
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("pfsm: unknown state %q encountered during unmarshaling", e.State)
}

// IsNoOp reports whether err is a no-op outcome of any state type.
func IsNoOp(err error) bool { return errors.Is(err, ErrKindNoOp) }

// IsInvalid reports whether err is an invalid-transition outcome of any state type.
func IsInvalid(err error) bool { return errors.Is(err, ErrKindInvalid) }
