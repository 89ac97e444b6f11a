// Package goenv loads the user's environment source files and evaluates
// commands and trigger expressions against them with a yaegi interpreter.
package goenv

import (
	"context"
	"encoding/json"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"slices"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

// markerPrelude defines the file and document markers for evaluation. At
// build time they simply return the referenced path; their dependency
// meaning is handled statically by the analyzer.
const markerPrelude = `
func file_in(path string) string { return path }

func file_out(path string) string { return path }

func doc_in(ref string) string {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '#' {
			return ref[:i]
		}
	}
	return ref
}
`

var _ ports.Environment = (*Environment)(nil)

// Environment implements ports.Environment. The declaration index is built
// once at load time; every Eval call runs in a fresh interpreter, so
// concurrent workers never observe each other's bindings.
type Environment struct {
	sources []string
	entries map[string]domain.EnvEntry
	names   []string
}

var _ ports.EnvironmentOpener = (*Opener)(nil)

// Opener implements ports.EnvironmentOpener.
type Opener struct{}

// NewOpener creates a new Opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open parses and loads the given environment source files.
func (o *Opener) Open(files []string) (ports.Environment, error) {
	return Load(files)
}

// Load reads the environment source files, verifies they evaluate, and
// indexes their top-level declarations.
func Load(files []string) (*Environment, error) {
	env := &Environment{
		entries: make(map[string]domain.EnvEntry),
	}

	for _, file := range files {
		//nolint:gosec // Environment files are named by the plan
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read environment file"), "file", file)
		}
		body, err := env.index(file, string(src))
		if err != nil {
			return nil, err
		}
		env.sources = append(env.sources, body)
	}

	// Fail fast on source that will not evaluate; this is a configuration
	// error, not something to discover mid-build.
	if _, err := env.interpreter(nil); err != nil {
		return nil, err
	}

	for name := range env.entries {
		env.names = append(env.names, name)
	}
	slices.Sort(env.names)

	return env, nil
}

// index parses one file and records each top-level declaration with its
// exact source text, recovered from position offsets. It returns the file
// body with the package clause stripped: declarations are fed to the
// interpreter's top-level scope so commands can reference them unqualified.
func (e *Environment) index(file, src string) (string, error) {
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file, src, parser.SkipObjectResolution)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to parse environment file"), "file", file)
	}

	cut := func(from, to token.Pos) string {
		return src[fset.Position(from).Offset:fset.Position(to).Offset]
	}

	for _, decl := range parsed.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			e.entries[d.Name.Name] = domain.EnvEntry{
				Name:   d.Name.Name,
				Kind:   domain.EnvFunc,
				Source: cut(d.Pos(), d.End()),
			}
		case *ast.GenDecl:
			if d.Tok != token.VAR && d.Tok != token.CONST && d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					for _, name := range s.Names {
						e.entries[name.Name] = domain.EnvEntry{
							Name:   name.Name,
							Kind:   domain.EnvValue,
							Source: cut(s.Pos(), s.End()),
						}
					}
				case *ast.TypeSpec:
					e.entries[s.Name.Name] = domain.EnvEntry{
						Name:   s.Name.Name,
						Kind:   domain.EnvValue,
						Source: cut(s.Pos(), s.End()),
					}
				}
			}
		}
	}

	return src[fset.Position(parsed.Name.End()).Offset:], nil
}

// interpreter builds a fresh interpreter with the markers, the environment
// sources, and the given dependency bindings in scope.
func (e *Environment) interpreter(bindings map[string]json.RawMessage) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, zerr.Wrap(err, "failed to load interpreter stdlib")
	}

	if _, err := i.Eval(markerPrelude); err != nil {
		return nil, zerr.Wrap(err, "failed to load marker prelude")
	}

	for _, src := range e.sources {
		if _, err := i.Eval(src); err != nil {
			return nil, zerr.Wrap(err, "failed to load environment source")
		}
	}

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		decl, err := bindingDecl(name, bindings[name])
		if err != nil {
			return nil, err
		}
		if _, err := i.Eval(decl); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to bind dependency value"), "name", name)
		}
	}

	return i, nil
}

// Eval evaluates the expression with the given dependency values in scope
// and returns the result as JSON. Cancellation of ctx interrupts the
// interpreter.
func (e *Environment) Eval(ctx context.Context, src string, bindings map[string]json.RawMessage) (json.RawMessage, error) {
	i, err := e.interpreter(bindings)
	if err != nil {
		return nil, err
	}

	v, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return nil, zerr.Wrap(err, "evaluation failed")
	}

	if !v.IsValid() {
		return json.RawMessage("null"), nil
	}

	out, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, zerr.Wrap(err, "value is not serializable")
	}
	return out, nil
}

// Lookup returns the declaration for a name defined in the environment.
func (e *Environment) Lookup(name string) (domain.EnvEntry, bool) {
	entry, ok := e.entries[name]
	return entry, ok
}

// Names returns all declared names, sorted.
func (e *Environment) Names() []string {
	return e.names
}
