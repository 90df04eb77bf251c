package pfsm

import (
	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

type (
	// Table is the outcome of every event from every state of a machine.
	// Rows are sorted by state name and cells by event name.
	Table[S State] struct {
		Machine string
		Rows    g.Slice[Row[S]]
	}

	// Row holds the outcomes of all events from one state.
	Row[S State] struct {
		State S
		Cells g.Slice[Cell[S]]
	}

	// Cell is the outcome of one event.
	Cell[S State] struct {
		Event   Event
		Outcome Outcome[S]
	}
)

// TransitionTable evaluates every event against every state. It is meant for
// tests and tooling: the cost is states × events.
func (m *Machine[S]) TransitionTable() Table[S] {
	events := m.events.Clone()
	events.SortBy(func(a, b *event[S]) cmp.Ordering { return cmp.Cmp(a.name, b.name) })

	rows := make(g.Slice[Row[S]], 0, len(m.states))

	for _, state := range m.states {
		cells := make(g.Slice[Cell[S]], 0, len(events))
		for _, e := range events {
			cells = append(cells, Cell[S]{Event: e.name, Outcome: Apply(e.name, e.clauses, state)})
		}

		rows = append(rows, Row[S]{State: state, Cells: cells})
	}

	return Table[S]{Machine: m.name, Rows: rows}
}

// Outcome returns the recorded outcome of event from state.
func (t Table[S]) Outcome(state S, event Event) g.Option[Outcome[S]] {
	for _, row := range t.Rows {
		if row.State != state {
			continue
		}

		for _, cell := range row.Cells {
			if cell.Event == event {
				return g.Some(cell.Outcome)
			}
		}
	}

	return g.None[Outcome[S]]()
}

// String renders the table as an indented two-level map, suitable for
// byte-exact snapshot comparison.
func (t Table[S]) String() string {
	b := g.NewBuilder()

	b.WriteString("{\n")

	for _, row := range t.Rows {
		b.WriteString(g.String("    " + row.State.String() + ": {\n"))

		for _, cell := range row.Cells {
			b.WriteString(g.String("        " + string(cell.Event) + ": " + cell.Outcome.String() + ",\n"))
		}

		b.WriteString("    },\n")
	}

	b.WriteString("}\n")

	return string(b.String())
}
