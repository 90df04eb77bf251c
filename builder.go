package pfsm

import (
	"github.com/enetx/g"
)

type predicate[S State] struct {
	name   string
	states g.Slice[S]
	set    g.Set[S]
}

// Builder collects the static definition of one state machine type. It is
// meant to run once, typically in a package-level var, and is not safe for
// concurrent use.
type Builder[S State] struct {
	name       string
	declared   g.Slice[S]
	events     g.Slice[*event[S]]
	docs       g.Map[Event, g.String]
	predicates g.Slice[predicate[S]]
	tracer     Tracer[S]
	skip       int
}

// Define starts the definition of a state machine called name. The name
// titles the exported graph and is attached to transition records.
func Define[S State](name string) *Builder[S] {
	return &Builder[S]{
		name: name,
		docs: g.NewMap[Event, g.String](),
	}
}

// States declares the complete state domain. Every source, target and
// predicate member must then belong to it. Declared states that no clause
// references can be parsed by name but are left out of the transition table
// and the graph.
func (b *Builder[S]) States(states ...S) *Builder[S] {
	b.declared.Push(states...)
	return b
}

// On adds an event with its clauses in evaluation order.
func (b *Builder[S]) On(name Event, clauses ...Clause[S]) *Builder[S] {
	b.events.Push(&event[S]{name: name, clauses: g.Slice[Clause[S]](clauses).Clone()})
	return b
}

// Doc attaches documentation to an event. It is used by generated code.
func (b *Builder[S]) Doc(name Event, text g.String) *Builder[S] {
	b.docs[name] = text
	return b
}

// Is declares a named read-only predicate over the given states.
func (b *Builder[S]) Is(name string, states ...S) *Builder[S] {
	b.predicates.Push(predicate[S]{name: name, states: g.Slice[S](states).Clone()})
	return b
}

// Trace sets the tracer that receives a Record for every successful
// transition. A nil tracer disables tracing entirely.
func (b *Builder[S]) Trace(tracer Tracer[S]) *Builder[S] {
	b.tracer = tracer
	return b
}

// CallerSkip adds frames to skip when capturing the call site, for wrappers
// that call into the machine on behalf of their own callers.
func (b *Builder[S]) CallerSkip(skip int) *Builder[S] {
	b.skip = skip
	return b
}

// MustBuild is like Build but panics on a malformed definition.
func (b *Builder[S]) MustBuild() *Machine[S] {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}

	return m
}

// Build validates the definition and compiles it into a Machine.
func (b *Builder[S]) Build() (*Machine[S], error) {
	if b.name == "" {
		return nil, b.malformed("", "machine name is empty")
	}

	if len(b.events) == 0 {
		return nil, b.malformed("", "no events declared")
	}

	domain := g.NewSet[S]()
	domain.Insert(b.declared...)

	inDomain := func(s S) bool { return len(b.declared) == 0 || domain.Contains(s) }

	m := &Machine[S]{
		name:       b.name,
		byName:     g.NewMap[string, S](),
		index:      g.NewMap[Event, *event[S]](),
		predicates: g.NewMap[string, predicate[S]](),
		tracer:     b.tracer,
		skip:       b.skip,
	}

	referenced := g.NewSet[S]()

	for _, e := range b.events {
		if e.name == "" {
			return nil, b.malformed("", "event name is empty")
		}

		if e.name == Anonymous {
			return nil, b.malformed(string(e.name), "event name is reserved")
		}

		if _, ok := m.index[e.name]; ok {
			return nil, b.malformed(string(e.name), "event declared twice")
		}

		if len(e.clauses) == 0 {
			return nil, b.malformed(string(e.name), "event has no clauses")
		}

		for _, c := range e.clauses {
			if len(c.From) == 0 {
				return nil, b.malformed(string(e.name), "clause has no source states")
			}

			for _, from := range c.From {
				if !inDomain(from) {
					return nil, b.malformed(string(e.name), "source "+from.String()+" is not a declared state")
				}

				referenced.Insert(from)
			}

			if !inDomain(c.To) {
				return nil, b.malformed(string(e.name), "target "+c.To.String()+" is not a declared state")
			}

			referenced.Insert(c.To)
		}

		compiled := &event[S]{name: e.name, doc: b.docs[e.name], clauses: e.clauses}
		m.index[e.name] = compiled
		m.events.Push(compiled)
	}

	for name := range b.docs {
		if _, ok := m.index[name]; !ok {
			return nil, b.malformed(string(name), "documentation for an undeclared event")
		}
	}

	for _, p := range b.predicates {
		if p.name == "" {
			return nil, b.malformed("", "predicate name is empty")
		}

		if _, ok := m.predicates[p.name]; ok {
			return nil, b.malformed(p.name, "predicate declared twice")
		}

		if len(p.states) == 0 {
			return nil, b.malformed(p.name, "predicate has no states")
		}

		for _, s := range p.states {
			if !inDomain(s) {
				return nil, b.malformed(p.name, "predicate state "+s.String()+" is not a declared state")
			}
		}

		p.set = g.NewSet[S]()
		p.set.Insert(p.states...)
		m.predicates[p.name] = p
	}

	// Declared states stay resolvable by name; only referenced ones are
	// introspected.
	named := g.NewSet[S]()
	named.Insert(b.declared...)
	named.Insert(referenced.ToSlice()...)

	for s := range named {
		name := s.String()
		if other, ok := m.byName[name]; ok && other != s {
			return nil, b.malformed("", "states share the name "+name)
		}

		m.byName[name] = s
	}

	m.states = sortStates(referenced.ToSlice())

	return m, nil
}

func (b *Builder[S]) malformed(event, reason string) error {
	return &ErrMalformed{Machine: b.name, Event: event, Reason: reason}
}
