// Package definition holds state machine definitions as data, so they can be
// written in a file, checked by tools and bound to a domain state type.
//
// The text form mirrors the declarative table of the runtime builder:
//
//	# send side of a stream
//	machine SendStream
//	states Ready Send DataSent DataRecvd ResetSent ResetRecvd
//	is terminal = DataRecvd | ResetRecvd
//
//	// The application sent a frame.
//	on_send_stream { Ready => Send }
//	on_send_reset {
//	    Ready | Send | DataSent => ResetSent,
//	}
//
// The same document can be written as YAML, see ParseYAML.
package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/enetx/g"
	"github.com/enetx/pfsm"
)

type (
	// Document is one state machine definition.
	Document struct {
		Machine    string      `yaml:"machine"`
		States     []string    `yaml:"states,omitempty,flow"`
		Events     []Event     `yaml:"events"`
		Predicates []Predicate `yaml:"predicates,omitempty"`
	}

	// Event is one named event and its ordered clauses.
	Event struct {
		Name    string   `yaml:"name"`
		Doc     string   `yaml:"doc,omitempty"`
		Clauses []Clause `yaml:"clauses"`
	}

	// Clause is one "from => to" rule.
	Clause struct {
		From []string `yaml:"from,flow"`
		To   string   `yaml:"to"`
	}

	// Predicate is a named set of states.
	Predicate struct {
		Name   string   `yaml:"name"`
		States []string `yaml:"states,flow"`
	}
)

// Variant is a string-backed state used when no domain type exists, e.g. by
// tooling working directly from a file.
type Variant string

func (v Variant) String() string { return string(v) }

// Load reads a definition file. Files ending in .yaml or .yml are decoded as
// YAML, anything else as the text form.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var doc *Document

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = ParseYAML(f)
	default:
		doc, err = Parse(f)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Validate checks that every name is an identifier and the machine is named.
// Structural rules (clauses, declared states) are enforced by pfsm.Builder.
func (d *Document) Validate() error {
	if !isIdent(d.Machine) {
		return fmt.Errorf("definition: machine name %q is not an identifier", d.Machine)
	}

	for _, s := range d.States {
		if !isIdent(s) {
			return fmt.Errorf("definition: state %q is not an identifier", s)
		}
	}

	for _, e := range d.Events {
		if !isIdent(e.Name) {
			return fmt.Errorf("definition: event name %q is not an identifier", e.Name)
		}

		for _, c := range e.Clauses {
			if !isIdent(c.To) {
				return fmt.Errorf("definition: event %q: state %q is not an identifier", e.Name, c.To)
			}

			for _, s := range c.From {
				if !isIdent(s) {
					return fmt.Errorf("definition: event %q: state %q is not an identifier", e.Name, s)
				}
			}
		}
	}

	for _, p := range d.Predicates {
		if !isIdent(p.Name) {
			return fmt.Errorf("definition: predicate name %q is not an identifier", p.Name)
		}

		for _, s := range p.States {
			if !isIdent(s) {
				return fmt.Errorf("definition: predicate %q: state %q is not an identifier", p.Name, s)
			}
		}
	}

	return nil
}

// StateNames returns the declared states, or when none are declared, every
// state referenced by the document in order of first appearance.
func (d *Document) StateNames() []string {
	if len(d.States) > 0 {
		return append([]string(nil), d.States...)
	}

	seen := g.NewSet[string]()

	var names []string

	add := func(name string) {
		if !seen.Contains(name) {
			seen.Insert(name)
			names = append(names, name)
		}
	}

	for _, e := range d.Events {
		for _, c := range e.Clauses {
			for _, from := range c.From {
				add(from)
			}

			add(c.To)
		}
	}

	for _, p := range d.Predicates {
		for _, s := range p.States {
			add(s)
		}
	}

	return names
}

// Bind resolves every state name of the document with lookup and returns a
// builder for the domain type S. Unknown names are reported here; the
// remaining checks happen in Build.
func Bind[S pfsm.State](doc *Document, lookup func(name string) (S, bool)) (*pfsm.Builder[S], error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	resolve := func(names []string) ([]S, error) {
		states := make([]S, 0, len(names))

		for _, name := range names {
			s, ok := lookup(name)
			if !ok {
				return nil, fmt.Errorf("definition: machine %q: unknown state %q", doc.Machine, name)
			}

			states = append(states, s)
		}

		return states, nil
	}

	b := pfsm.Define[S](doc.Machine)

	declared, err := resolve(doc.States)
	if err != nil {
		return nil, err
	}

	b.States(declared...)

	for _, e := range doc.Events {
		clauses := make([]pfsm.Clause[S], 0, len(e.Clauses))

		for _, c := range e.Clauses {
			from, err := resolve(c.From)
			if err != nil {
				return nil, err
			}

			to, err := resolve([]string{c.To})
			if err != nil {
				return nil, err
			}

			clauses = append(clauses, pfsm.From(from...).To(to[0]))
		}

		b.On(pfsm.Event(e.Name), clauses...)

		if e.Doc != "" {
			b.Doc(pfsm.Event(e.Name), g.String(e.Doc))
		}
	}

	for _, p := range doc.Predicates {
		states, err := resolve(p.States)
		if err != nil {
			return nil, err
		}

		b.Is(p.Name, states...)
	}

	return b, nil
}

// Build binds the document to Variant states and compiles it.
func (d *Document) Build() (*pfsm.Machine[Variant], error) {
	known := g.NewSet[string]()
	known.Insert(d.StateNames()...)

	b, err := Bind(d, func(name string) (Variant, bool) {
		return Variant(name), known.Contains(name)
	})
	if err != nil {
		return nil, err
	}

	return b.Build()
}

// FromMachine converts a compiled machine back into a document. States are
// listed in name order.
func FromMachine[S pfsm.State](m *pfsm.Machine[S]) *Document {
	names := func(states []S) []string {
		out := make([]string, 0, len(states))
		for _, s := range states {
			out = append(out, s.String())
		}

		return out
	}

	doc := &Document{
		Machine: m.Name(),
		States:  names(m.States()),
	}

	for _, name := range m.Events() {
		e := Event{Name: string(name), Doc: string(m.Doc(name))}

		for _, c := range m.Clauses(name) {
			e.Clauses = append(e.Clauses, Clause{From: names(c.From), To: c.To.String()})
		}

		doc.Events = append(doc.Events, e)
	}

	for _, name := range m.Predicates() {
		doc.Predicates = append(doc.Predicates, Predicate{Name: name, States: names(m.Members(name))})
	}

	return doc
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}

	return true
}

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return !first
	default:
		return false
	}
}
