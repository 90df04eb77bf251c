// Package codegen turns a definition document into Go source: a state
// enumeration with one method per event and per predicate.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strings"
	"text/template"

	"github.com/enetx/g"
	"github.com/enetx/pfsm/definition"
)

// DefaultImport is the import path of the runtime package.
const DefaultImport = "github.com/enetx/pfsm"

// Options controls the generated file.
type Options struct {
	// Package is the package clause. Defaults to the lower-cased machine name.
	Package string
	// Type is the name of the state type. Defaults to the machine name.
	Type string
	// Source is mentioned in the generated header.
	Source string
	// Import overrides DefaultImport.
	Import string
}

type (
	stateView struct {
		Name  string
		Const string
	}

	clauseView struct {
		From string
		To   string
	}

	eventView struct {
		Name    string
		Method  string
		Doc     []string
		Clauses []clauseView
	}

	predicateView struct {
		Name   string
		Method string
		States string
	}

	fileView struct {
		Source     string
		Package    string
		Import     string
		Machine    string
		Type       string
		Var        string
		Tracer     string
		States     []stateView
		Events     []eventView
		Predicates []predicateView
	}
)

var file = template.Must(template.New("file").Parse(`// Code generated by pfsmgen{{if .Source}} from {{.Source}}{{end}}. DO NOT EDIT.

package {{.Package}}

import (
	"strconv"

	"{{.Import}}"
)

// {{.Type}} is the lifecycle state of a {{.Machine}}.
type {{.Type}} uint8

const (
{{- range $i, $s := .States}}
	{{$s.Const}}{{if eq $i 0}} {{$.Type}} = iota{{end}}
{{- end}}
)

func (s {{.Type}}) String() string {
	switch s {
{{- range .States}}
	case {{.Const}}:
		return {{printf "%q" .Name}}
{{- end}}
	default:
		return "{{.Type}}(" + strconv.Itoa(int(s)) + ")"
	}
}

var {{.Tracer}} = pfsm.NewTracer[{{.Type}}](pfsm.MustLoadConfig(), nil)

var {{.Var}} = pfsm.Define[{{.Type}}]({{printf "%q" .Machine}}).
	States({{range $i, $s := .States}}{{if $i}}, {{end}}{{$s.Const}}{{end}}).
{{- range .Events}}
	On({{printf "%q" .Name}}{{range .Clauses}}, pfsm.From({{.From}}).To({{.To}}){{end}}).
{{- end}}
{{- range .Predicates}}
	Is({{printf "%q" .Name}}, {{.States}}).
{{- end}}
	Trace({{.Tracer}}).
	CallerSkip(1).
	MustBuild()

// {{.Type}}Machine returns the compiled {{.Machine}} machine.
func {{.Type}}Machine() *pfsm.Machine[{{.Type}}] { return {{.Var}} }

// Flush{{.Type}}Tracer delivers transition records still buffered when
// PFSM_TRACE_BUFFER is set. Call it before the program exits.
func Flush{{.Type}}Tracer() error { return pfsm.CloseTracer({{.Tracer}}) }
{{range .Events}}
{{if .Doc}}{{range .Doc}}// {{.}}
{{end}}{{else}}// {{.Method}} applies the {{printf "%q" .Name}} event.
{{end -}}
func (s *{{$.Type}}) {{.Method}}() error { return {{$.Var}}.Fire({{printf "%q" .Name}}, s) }
{{end}}
{{- range .Predicates}}
// {{.Method}} reports whether the state is one of {{.States}}.
func (s {{$.Type}}) {{.Method}}() bool { return {{$.Var}}.Is({{printf "%q" .Name}}, s) }
{{end -}}
`))

// Generate renders doc as a gofmt'ed Go file.
func Generate(doc *definition.Document, opts Options) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if _, err := doc.Build(); err != nil {
		return nil, err
	}

	view, err := newView(doc, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := file.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("codegen: execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("codegen: format generated source: %w", err)
	}

	return src, nil
}

func newView(doc *definition.Document, opts Options) (*fileView, error) {
	view := &fileView{
		Source:  opts.Source,
		Package: opts.Package,
		Import:  opts.Import,
		Machine: doc.Machine,
		Type:    opts.Type,
	}

	if view.Package == "" {
		view.Package = strings.ToLower(doc.Machine)
	}

	if view.Type == "" {
		view.Type = camel(doc.Machine)
	}

	if view.Import == "" {
		view.Import = DefaultImport
	}

	if !token.IsIdentifier(view.Package) || token.IsKeyword(view.Package) {
		return nil, fmt.Errorf("codegen: invalid package name %q", view.Package)
	}

	if !token.IsIdentifier(view.Type) || !token.IsExported(view.Type) {
		return nil, fmt.Errorf("codegen: type name %q must be an exported identifier", view.Type)
	}

	unexported := strings.ToLower(view.Type[:1]) + view.Type[1:]
	view.Var = unexported + "Machine"
	view.Tracer = unexported + "Tracer"

	idents := g.NewSet[string]()
	idents.Insert(view.Type, view.Type+"Machine", "Flush"+view.Type+"Tracer", view.Var, view.Tracer)

	consts := g.NewMap[string, string]()

	for _, name := range doc.StateNames() {
		c := view.Type + camel(name)
		if idents.Contains(c) {
			return nil, fmt.Errorf("codegen: state %s maps to identifier %s, which is already declared", name, c)
		}

		idents.Insert(c)
		consts[name] = c
		view.States = append(view.States, stateView{Name: name, Const: c})
	}

	join := func(names []string) string {
		out := make(g.Slice[g.String], 0, len(names))
		for _, name := range names {
			out.Push(g.String(consts[name]))
		}

		return string(out.Join(", "))
	}

	methods := g.NewSet[string]()
	methods.Insert("String")

	claim := func(method, owner string) error {
		if methods.Contains(method) {
			return fmt.Errorf("codegen: %s maps to method %s, which is already taken", owner, method)
		}

		methods.Insert(method)

		return nil
	}

	for _, e := range doc.Events {
		ev := eventView{Name: e.Name, Method: camel(e.Name)}
		if err := claim(ev.Method, "event "+e.Name); err != nil {
			return nil, err
		}

		if e.Doc != "" {
			ev.Doc = strings.Split(e.Doc, "\n")
		}

		for _, c := range e.Clauses {
			ev.Clauses = append(ev.Clauses, clauseView{From: join(c.From), To: consts[c.To]})
		}

		view.Events = append(view.Events, ev)
	}

	for _, p := range doc.Predicates {
		method := "Is" + camel(p.Name)
		if strings.HasPrefix(p.Name, "is_") {
			method = camel(p.Name)
		}

		if err := claim(method, "predicate "+p.Name); err != nil {
			return nil, err
		}

		view.Predicates = append(view.Predicates, predicateView{Name: p.Name, Method: method, States: join(p.States)})
	}

	return view, nil
}

// camel converts snake_case and mixedCase names to an exported identifier.
func camel(name string) string {
	var b strings.Builder

	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}

		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}

	if b.Len() == 0 {
		return "X"
	}

	return b.String()
}
