package definition

import (
	"fmt"
	"io"
	"strings"

	"github.com/enetx/g"
)

// SyntaxError reports a problem in the text form.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("definition: line %d: %s", e.Line, e.Msg)
}

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokDoc
	tokLBrace
	tokRBrace
	tokPipe
	tokComma
	tokArrow
	tokEquals
)

func (k tokenKind) String() string {
	return [...]string{"end of input", "newline", "identifier", "doc comment", "'{'", "'}'", "'|'", "','", "'=>'", "'='"}[k]
}

type token struct {
	kind tokenKind
	text string
	line int
}

func lex(src string) ([]token, error) {
	var (
		toks []token
		line = 1
	)

	emit := func(kind tokenKind, text string) { toks = append(toks, token{kind: kind, text: text, line: line}) }

	for i := 0; i < len(src); {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '\n':
			emit(tokNewline, "")
			line++
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			start := i + 2
			for i < len(src) && src[i] != '\n' {
				i++
			}

			emit(tokDoc, strings.TrimSpace(src[start:i]))
		case c == '{':
			emit(tokLBrace, "{")
			i++
		case c == '}':
			emit(tokRBrace, "}")
			i++
		case c == '|':
			emit(tokPipe, "|")
			i++
		case c == ',':
			emit(tokComma, ",")
			i++
		case c == '=' && i+1 < len(src) && src[i+1] == '>':
			emit(tokArrow, "=>")
			i += 2
		case c == '=':
			emit(tokEquals, "=")
			i++
		case isIdentRune(rune(c), true):
			start := i
			for i < len(src) && isIdentRune(rune(src[i]), false) {
				i++
			}

			emit(tokIdent, src[start:i])
		default:
			return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	emit(tokEOF, "")

	return toks, nil
}

type parser struct {
	toks []token
	pos  int
	doc  []string
}

// Parse reads the text form of a definition.
func Parse(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("definition: read: %w", err)
	}

	toks, err := lex(string(src))
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}

	return p.document()
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}

	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.unexpected(t, kind.String())
	}

	return t, nil
}

func (p *parser) unexpected(t token, want string) error {
	got := t.kind.String()
	if t.kind == tokIdent {
		got = fmt.Sprintf("%q", t.text)
	}

	return &SyntaxError{Line: t.line, Msg: fmt.Sprintf("expected %s, found %s", want, got)}
}

// endOfStatement accepts a newline or the end of input.
func (p *parser) endOfStatement() error {
	t := p.next()
	if t.kind != tokNewline && t.kind != tokEOF {
		return p.unexpected(t, "end of line")
	}

	return nil
}

func (p *parser) skip(kinds ...tokenKind) {
	for {
		k := p.peek().kind

		found := false
		for _, kind := range kinds {
			found = found || k == kind
		}

		if !found {
			return
		}

		p.next()
	}
}

func (p *parser) document() (*Document, error) {
	doc := &Document{}

	for {
		t := p.next()

		switch t.kind {
		case tokEOF:
			if doc.Machine == "" {
				return nil, &SyntaxError{Line: t.line, Msg: "missing machine statement"}
			}

			return doc, nil
		case tokNewline:
			continue
		case tokDoc:
			p.doc = append(p.doc, t.text)
			continue
		case tokIdent:
		default:
			return nil, p.unexpected(t, "statement")
		}

		if p.peek().kind == tokLBrace {
			e, err := p.event(t.text)
			if err != nil {
				return nil, err
			}

			doc.Events = append(doc.Events, e)

			continue
		}

		p.doc = nil

		var err error

		switch t.text {
		case "machine":
			err = p.machine(doc, t)
		case "states":
			err = p.states(doc)
		case "is":
			err = p.predicate(doc)
		default:
			err = &SyntaxError{Line: t.line, Msg: fmt.Sprintf("expected '{' after event %q", t.text)}
		}

		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) machine(doc *Document, at token) error {
	if doc.Machine != "" {
		return &SyntaxError{Line: at.line, Msg: "machine declared twice"}
	}

	name, err := p.expect(tokIdent)
	if err != nil {
		return err
	}

	doc.Machine = name.text

	return p.endOfStatement()
}

func (p *parser) states(doc *Document) error {
	for p.peek().kind == tokIdent {
		doc.States = append(doc.States, p.next().text)
	}

	return p.endOfStatement()
}

func (p *parser) predicate(doc *Document) error {
	name, err := p.expect(tokIdent)
	if err != nil {
		return err
	}

	if _, err := p.expect(tokEquals); err != nil {
		return err
	}

	states, err := p.alternation()
	if err != nil {
		return err
	}

	doc.Predicates = append(doc.Predicates, Predicate{Name: name.text, States: states})

	return p.endOfStatement()
}

// alternation parses "A | B | C".
func (p *parser) alternation() ([]string, error) {
	var states []string

	for {
		t, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}

		states = append(states, t.text)

		if p.peek().kind != tokPipe {
			return states, nil
		}

		p.next()
	}
}

func (p *parser) event(name string) (Event, error) {
	e := Event{Name: name, Doc: strings.Join(p.doc, "\n")}
	p.doc = nil

	p.next() // '{'

	for {
		p.skip(tokNewline, tokDoc)

		if p.peek().kind == tokRBrace {
			p.next()
			return e, nil
		}

		from, err := p.alternation()
		if err != nil {
			return Event{}, err
		}

		if _, err := p.expect(tokArrow); err != nil {
			return Event{}, err
		}

		to, err := p.expect(tokIdent)
		if err != nil {
			return Event{}, err
		}

		e.Clauses = append(e.Clauses, Clause{From: from, To: to.text})

		p.skip(tokNewline, tokDoc)

		switch t := p.peek(); t.kind {
		case tokComma:
			p.next()
		case tokRBrace:
		default:
			return Event{}, p.unexpected(t, "',' or '}'")
		}
	}
}

// Text renders the document in the text form accepted by Parse.
func (d *Document) Text() string {
	b := g.NewBuilder()

	b.WriteString(g.String("machine " + d.Machine + "\n"))

	if len(d.States) > 0 {
		b.WriteString(g.String("states " + strings.Join(d.States, " ") + "\n"))
	}

	for _, p := range d.Predicates {
		b.WriteString(g.String("is " + p.Name + " = " + strings.Join(p.States, " | ") + "\n"))
	}

	for _, e := range d.Events {
		b.WriteString("\n")

		if e.Doc != "" {
			for _, line := range strings.Split(e.Doc, "\n") {
				b.WriteString(g.String("// " + line + "\n"))
			}
		}

		if len(e.Clauses) == 1 {
			b.WriteString(g.String(e.Name + " { " + clauseText(e.Clauses[0]) + " }\n"))
			continue
		}

		b.WriteString(g.String(e.Name + " {\n"))

		for _, c := range e.Clauses {
			b.WriteString(g.String("    " + clauseText(c) + ",\n"))
		}

		b.WriteString("}\n")
	}

	return string(b.String())
}

func clauseText(c Clause) string {
	return strings.Join(c.From, " | ") + " => " + c.To
}
