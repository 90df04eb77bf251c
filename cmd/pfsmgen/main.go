// Command pfsmgen reads a state machine definition and writes one of its
// artifacts: the Graphviz graph, the transition table, Go source, or the
// definition converted to another form.
//
//	pfsmgen -format dot conn.fsm | dot -Tsvg > conn.svg
//	pfsmgen -format go -pkg quic -type ConnState -out conn_fsm.go conn.fsm
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"github.com/enetx/pfsm/definition"
	"github.com/enetx/pfsm/internal/codegen"
)

// Config holds defaults that flags override.
type Config struct {
	Format  string `env:"PFSMGEN_FORMAT" envDefault:"dot"`
	Package string `env:"PFSMGEN_PACKAGE"`
	Import  string `env:"PFSMGEN_IMPORT"`
}

var errUsage = errors.New("usage: pfsmgen [flags] definition")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Error("pfsmgen failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("pfsmgen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	format := fs.String("format", cfg.Format, "output format: dot, table, json, go, text or yaml")
	out := fs.String("out", "", "output file (default stdout)")
	pkg := fs.String("pkg", cfg.Package, "package name of generated Go code")
	typ := fs.String("type", "", "state type name of generated Go code")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if fs.NArg() != 1 {
		return errUsage
	}

	path := fs.Arg(0)

	doc, err := definition.Load(path)
	if err != nil {
		return err
	}

	data, err := render(doc, *format, codegen.Options{
		Package: *pkg,
		Type:    *typ,
		Source:  filepath.Base(path),
		Import:  cfg.Import,
	})
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	return nil
}

func render(doc *definition.Document, format string, opts codegen.Options) ([]byte, error) {
	switch format {
	case "go":
		return codegen.Generate(doc, opts)
	case "text":
		return []byte(doc.Text()), nil
	case "yaml":
		return doc.YAML()
	}

	m, err := doc.Build()
	if err != nil {
		return nil, err
	}

	switch format {
	case "dot":
		return []byte(m.ToDOT()), nil
	case "table":
		return []byte(m.TransitionTable().String()), nil
	case "json":
		data, err := json.MarshalIndent(m.TransitionTable(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal table: %w", err)
		}

		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
