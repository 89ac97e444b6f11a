// Package analysis implements the static dependency analyzer. It inspects
// command expressions and environment declarations as syntax trees and
// extracts the names they reference, without executing anything.
package analysis

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

// Marker function names recognized by pattern in command text. They declare
// file inputs, file outputs, and cross-references to named chunks of
// external documents; their string-literal arguments are recorded as file
// dependencies rather than evaluated.
const (
	markerFileIn  = "file_in"
	markerFileOut = "file_out"
	markerDocIn   = "doc_in"
)

var _ ports.Analyzer = (*Analyzer)(nil)

// Analyzer implements ports.Analyzer over Go expression syntax.
type Analyzer struct{}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// AnalyzeCommand inspects a target's command expression.
func (a *Analyzer) AnalyzeCommand(src string) (domain.CommandDeps, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return domain.CommandDeps{}, zerr.With(zerr.Wrap(domain.ErrAnalysis, err.Error()), "command", src)
	}
	return collect(expr), nil
}

// AnalyzeSource inspects one environment declaration. The declaration is
// wrapped in a synthetic file so the stdlib parser can handle it; names
// bound by the declaration itself (its own name, parameters, locals) are
// not dependencies.
func (a *Analyzer) AnalyzeSource(src string) (domain.CommandDeps, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "env.go", "package env\n\n"+src, parser.SkipObjectResolution)
	if err != nil {
		return domain.CommandDeps{}, zerr.Wrap(domain.ErrAnalysis, err.Error())
	}

	deps := domain.CommandDeps{}
	for _, decl := range file.Decls {
		d := collect(decl)
		deps.Refs = append(deps.Refs, d.Refs...)
		deps.Qualified = append(deps.Qualified, d.Qualified...)
		deps.FileIns = append(deps.FileIns, d.FileIns...)
		deps.FileOuts = append(deps.FileOuts, d.FileOuts...)
		deps.DocIns = append(deps.DocIns, d.DocIns...)
	}
	dedupe(&deps)
	return deps, nil
}

// Normalize renders an expression in canonical form so that formatting-only
// edits do not change its fingerprint. Unparsable input is returned as is;
// such targets are unconditionally outdated anyway.
func Normalize(src string) string {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return strings.TrimSpace(src)
	}
	return types.ExprString(expr)
}

// collect walks one syntax tree and gathers referenced names, marker paths,
// and bound (local) names, then subtracts the bound names.
func collect(root ast.Node) domain.CommandDeps {
	w := &walker{
		bound:     map[string]bool{},
		refs:      map[string]bool{},
		qualified: map[string]bool{},
	}
	ast.Inspect(root, w.visit)

	deps := domain.CommandDeps{
		FileIns:  w.fileIns,
		FileOuts: w.fileOuts,
		DocIns:   w.docIns,
	}
	for name := range w.refs {
		if !w.bound[name] && !universe[name] {
			deps.Refs = append(deps.Refs, name)
		}
	}
	for name := range w.qualified {
		if !w.bound[name] && !universe[name] && !w.refs[name] {
			deps.Qualified = append(deps.Qualified, name)
		}
	}
	dedupe(&deps)
	return deps
}

type walker struct {
	bound     map[string]bool
	refs      map[string]bool
	qualified map[string]bool
	fileIns   []string
	fileOuts  []string
	docIns    []string
}

func (w *walker) visit(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.FuncDecl:
		w.bindFieldList(node.Recv)
		w.bindFieldList(node.Type.Params)
		w.bindFieldList(node.Type.Results)
		if node.Name != nil {
			w.bound[node.Name.Name] = true
		}
	case *ast.FuncLit:
		// The literal's parameters and locals must not leak outward: a name
		// bound inside it can still be a genuine reference elsewhere.
		nested := &walker{
			bound:     maps.Clone(w.bound),
			refs:      map[string]bool{},
			qualified: map[string]bool{},
		}
		nested.bindFieldList(node.Type.Params)
		nested.bindFieldList(node.Type.Results)
		ast.Inspect(node.Body, nested.visit)
		for name := range nested.refs {
			if !nested.bound[name] {
				w.refs[name] = true
			}
		}
		for name := range nested.qualified {
			if !nested.bound[name] {
				w.qualified[name] = true
			}
		}
		w.fileIns = append(w.fileIns, nested.fileIns...)
		w.fileOuts = append(w.fileOuts, nested.fileOuts...)
		w.docIns = append(w.docIns, nested.docIns...)
		return false
	case *ast.AssignStmt:
		if node.Tok == token.DEFINE {
			for _, lhs := range node.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					w.bound[id.Name] = true
				}
			}
		}
	case *ast.RangeStmt:
		if node.Tok == token.DEFINE {
			if id, ok := node.Key.(*ast.Ident); ok {
				w.bound[id.Name] = true
			}
			if id, ok := node.Value.(*ast.Ident); ok {
				w.bound[id.Name] = true
			}
		}
	case *ast.ValueSpec:
		for _, name := range node.Names {
			w.bound[name.Name] = true
		}
	case *ast.TypeSpec:
		w.bound[node.Name.Name] = true
	case *ast.CallExpr:
		if w.visitCall(node) {
			return false
		}
	case *ast.SelectorExpr:
		// Sel is a field, method, or package member name, never a reference.
		if id, ok := node.X.(*ast.Ident); ok {
			w.qualified[id.Name] = true
		} else {
			ast.Inspect(node.X, w.visit)
		}
		return false
	case *ast.CompositeLit:
		// Struct literal keys are field names, not references.
		for _, elt := range node.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				if _, isIdent := kv.Key.(*ast.Ident); isIdent {
					ast.Inspect(kv.Value, w.visit)
					continue
				}
			}
			ast.Inspect(elt, w.visit)
		}
		if node.Type != nil {
			ast.Inspect(node.Type, w.visit)
		}
		return false
	case *ast.Ident:
		w.refs[node.Name] = true
	}
	return true
}

// visitCall recognizes the file and document markers. It returns true when
// the call was consumed as a marker and must not be walked further.
func (w *walker) visitCall(call *ast.CallExpr) bool {
	id, ok := call.Fun.(*ast.Ident)
	if !ok {
		return false
	}
	if id.Name != markerFileIn && id.Name != markerFileOut && id.Name != markerDocIn {
		return false
	}
	if len(call.Args) != 1 {
		return false
	}
	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return false
	}
	path, err := strconv.Unquote(lit.Value)
	if err != nil {
		return false
	}
	switch id.Name {
	case markerFileIn:
		w.fileIns = append(w.fileIns, path)
	case markerFileOut:
		w.fileOuts = append(w.fileOuts, path)
	case markerDocIn:
		w.docIns = append(w.docIns, path)
	}
	return true
}

func (w *walker) bindFieldList(fields *ast.FieldList) {
	if fields == nil {
		return
	}
	for _, field := range fields.List {
		for _, name := range field.Names {
			w.bound[name.Name] = true
		}
	}
}

func dedupe(deps *domain.CommandDeps) {
	for _, s := range []*[]string{&deps.Refs, &deps.Qualified, &deps.FileIns, &deps.FileOuts, &deps.DocIns} {
		slices.Sort(*s)
		*s = slices.Compact(*s)
	}
}

// universe holds predeclared Go identifiers that are never dependencies.
var universe = map[string]bool{
	"true": true, "false": true, "nil": true, "iota": true,
	"append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true,
	"len": true, "make": true, "max": true, "min": true, "new": true,
	"panic": true, "print": true, "println": true, "real": true,
	"recover": true,
	"any":     true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true,
}
