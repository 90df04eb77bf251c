package pfsm

import (
	"strconv"

	"github.com/enetx/g"
)

// ToDOT generates a DOT language representation of the machine: one node per
// state in name order, one labelled edge per source of every clause in
// declaration order. States without outgoing edges are drawn as double
// circles. The output only depends on the definition.
func (m *Machine[S]) ToDOT() g.String {
	b := g.NewBuilder()

	b.WriteString("digraph {\n")
	b.WriteString(g.String("  label = " + strconv.Quote(m.name) + ";\n"))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString(
		"  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	outgoing := g.NewSet[S]()
	for _, e := range m.events {
		for _, c := range e.clauses {
			outgoing.Insert(c.From...)
		}
	}

	for _, state := range m.states {
		attrs := g.Slice[g.String]{g.String("label=" + strconv.Quote(state.String()))}
		if !outgoing.Contains(state) {
			attrs.Push("fillcolor=\"#d3d3d3\"", "shape=doublecircle")
		}

		b.WriteString(g.String("  " + strconv.Quote(state.String()) + " [" + string(attrs.Join(", ")) + "];\n"))
	}

	b.WriteByte('\n')

	for _, e := range m.events {
		for _, c := range e.clauses {
			for _, from := range c.From {
				b.WriteString(g.String("  " + strconv.Quote(from.String()) + " -> " + strconv.Quote(c.To.String()) +
					" [label = " + strconv.Quote(string(e.name)) + "];\n"))
			}
		}
	}

	b.WriteString("}\n")

	return b.String()
}
