package pfsm_test

import (
	"fmt"

	"github.com/enetx/pfsm"
)

type keyPhase uint8

const (
	phaseZero keyPhase = iota
	phaseOne
	phaseDiscarded
)

func (p keyPhase) String() string {
	return [...]string{"Zero", "One", "Discarded"}[p]
}

var keyUpdate = pfsm.Define[keyPhase]("keyPhase").
	On("rotate", pfsm.From(phaseZero).To(phaseOne), pfsm.From(phaseOne).To(phaseZero)).
	On("discard", pfsm.From(phaseZero, phaseOne).To(phaseDiscarded)).
	Is("usable", phaseZero, phaseOne).
	MustBuild()

func Example() {
	phase := phaseZero

	rotate := keyUpdate.Event("rotate")
	discard := keyUpdate.Event("discard")

	for _, fire := range []pfsm.EventFunc[keyPhase]{rotate, discard, discard, rotate} {
		err := fire(&phase)
		fmt.Println(err, phase)
	}

	fmt.Println(keyUpdate.Is("usable", phase))

	// Output:
	// <nil> One
	// <nil> Discarded
	// pfsm: state is already set to Discarded Discarded
	// pfsm: invalid event "rotate" for state Discarded Discarded
	// false
}

func ExampleMachine_TransitionTable() {
	fmt.Print(keyUpdate.TransitionTable())

	// Output:
	// {
	//     Discarded: {
	//         discard: Err(NoOp { current: Discarded }),
	//         rotate: Err(InvalidTransition { current: Discarded, event: "rotate" }),
	//     },
	//     One: {
	//         discard: Ok(Discarded),
	//         rotate: Ok(Zero),
	//     },
	//     Zero: {
	//         discard: Ok(Discarded),
	//         rotate: Ok(One),
	//     },
	// }
}
