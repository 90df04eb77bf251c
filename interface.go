package pfsm

import "github.com/enetx/g"

// StateMachine is a state value bound to its machine, usable from several
// goroutines.
type StateMachine[S State] interface {
	Fire(Event) error
	Transition(...Clause[S]) error
	Current() S
	Is(string) bool
	History() g.Slice[S]
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}
