// Package resolve turns a plan and a loaded environment into a validated,
// immutable build configuration: the dependency graph plus the effective
// settings for every target.
package resolve

import (
	"slices"
	"strings"
	"time"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options are the run-level defaults a target inherits when its plan row
// leaves an override column empty.
type Options struct {
	Timeout time.Duration
	Elapsed time.Duration
	CPU     time.Duration
	Retries int
}

// Config is the result of a successful resolve. It is not mutated after
// construction; the scheduler and detector only read from it.
type Config struct {
	Graph *domain.Graph
	Plan  *domain.Plan
	Env   ports.Environment

	// Targets maps each target name to its effective settings, with the
	// run-level defaults already merged in.
	Targets map[string]domain.Target

	// Warnings are non-fatal findings, one line each: commands that could
	// not be analyzed and are tracked with unknown dependencies.
	Warnings []string
}

// MissingImports returns the names commands reference that are neither
// targets nor defined by the environment, sorted.
func (c *Config) MissingImports() []string {
	var missing []string
	for node := range c.Graph.Walk() {
		if node.Missing {
			missing = append(missing, node.Name.String())
		}
	}
	slices.Sort(missing)
	return missing
}

// resolver carries the per-resolve state: which environment declarations
// have already been expanded into the graph.
type resolver struct {
	plan      *domain.Plan
	env       ports.Environment
	analyzer  ports.Analyzer
	graph     *domain.Graph
	expanded  map[string]bool
	expanding map[string]bool
	warnings  []string
}

// Resolve analyzes every command, expands the referenced environment
// declarations into import nodes, validates the overrides, and checks the
// graph for cycles. All failures are configuration errors.
func Resolve(plan *domain.Plan, env ports.Environment, analyzer ports.Analyzer, opts Options) (*Config, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	r := &resolver{
		plan:      plan,
		env:       env,
		analyzer:  analyzer,
		graph:     domain.NewGraph(),
		expanded:  make(map[string]bool),
		expanding: make(map[string]bool),
	}

	targets := make(map[string]domain.Target, len(plan.Targets))
	for _, t := range plan.Targets {
		if err := r.addTarget(t); err != nil {
			return nil, err
		}
		targets[t.Name] = mergeSettings(t, opts)
	}

	if err := r.graph.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Graph:    r.graph,
		Plan:     plan,
		Env:      env,
		Targets:  targets,
		Warnings: r.warnings,
	}, nil
}

// addTarget analyzes one target's command and adds its node and dependency
// edges. An unparsable command is non-fatal: the node is tracked with
// unknown dependencies and the detector treats it as always outdated.
func (r *resolver) addTarget(t domain.Target) error {
	if t.Trigger.Mode == domain.TriggerExpr {
		if _, err := r.analyzer.AnalyzeCommand(t.Trigger.Expr); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrInvalidTrigger, "trigger expression does not parse"), "name", t.Name)
		}
	}

	node := domain.Node{
		Name:    domain.NewInternedString(t.Name),
		Kind:    domain.KindTarget,
		Command: t.Command,
	}

	deps, err := r.analyzer.AnalyzeCommand(t.Command)
	if err != nil {
		node.UnknownDeps = true
		r.warnings = append(r.warnings, "command of "+t.Name+" could not be analyzed; assuming unknown dependencies")
		return r.graph.AddNode(node)
	}

	depNames, err := r.resolveRefs(deps, true)
	if err != nil {
		return zerr.With(err, "name", t.Name)
	}
	node.Deps = depNames
	node.FileOutputs = deps.FileOuts

	return r.graph.AddNode(node)
}

// resolveRefs turns analysis output into graph edges, adding import and
// file nodes as needed. Targets may be referenced from commands
// (targetsVisible) but not from environment declaration bodies.
func (r *resolver) resolveRefs(deps domain.CommandDeps, targetsVisible bool) ([]domain.InternedString, error) {
	var edges []domain.InternedString

	for _, ref := range deps.Refs {
		// A reference back into a declaration currently being expanded is
		// a recursive helper; dropping the back edge keeps the graph
		// acyclic while the declaration's own source change still
		// invalidates its callers.
		if r.expanding[ref] {
			continue
		}
		name, err := r.resolveName(ref, targetsVisible)
		if err != nil {
			return nil, err
		}
		edges = append(edges, name)
	}

	// A qualified name that happens to be a known target or declaration is
	// a real reference; anything else is a package qualifier.
	for _, ref := range deps.Qualified {
		if !r.isKnown(ref, targetsVisible) || r.expanding[ref] {
			continue
		}
		name, err := r.resolveName(ref, targetsVisible)
		if err != nil {
			return nil, err
		}
		edges = append(edges, name)
	}

	for _, path := range deps.FileIns {
		if err := r.graph.AddNode(domain.Node{Name: domain.NewInternedString(path), Kind: domain.KindFile}); err != nil {
			return nil, err
		}
		edges = append(edges, domain.NewInternedString(path))
	}

	for _, ref := range deps.DocIns {
		path, fragment, _ := strings.Cut(ref, "#")
		if err := r.graph.AddNode(domain.Node{
			Name:        domain.NewInternedString(path),
			Kind:        domain.KindFile,
			DocFragment: fragment,
		}); err != nil {
			return nil, err
		}
		edges = append(edges, domain.NewInternedString(path))
	}

	return edges, nil
}

func (r *resolver) isKnown(ref string, targetsVisible bool) bool {
	if targetsVisible {
		if _, ok := r.plan.Target(ref); ok {
			return true
		}
	}
	_, ok := r.env.Lookup(ref)
	return ok
}

// resolveName classifies one referenced name. Plan targets resolve to the
// target node; environment declarations are expanded into import nodes;
// everything else becomes a missing import, tracked but never fatal.
func (r *resolver) resolveName(ref string, targetsVisible bool) (domain.InternedString, error) {
	if targetsVisible {
		if _, ok := r.plan.Target(ref); ok {
			return domain.NewInternedString(ref), nil
		}
	}

	if entry, ok := r.env.Lookup(ref); ok {
		if err := r.expandImport(entry); err != nil {
			return domain.InternedString{}, err
		}
		return domain.NewInternedString(ref), nil
	}

	err := r.graph.AddNode(domain.Node{
		Name:    domain.NewInternedString(ref),
		Kind:    domain.KindImport,
		Missing: true,
	})
	return domain.NewInternedString(ref), err
}

// expandImport adds the import node for an environment declaration and
// recurses into the names its own source references, so an edit deep in a
// helper chain reaches every calling target through graph edges.
func (r *resolver) expandImport(entry domain.EnvEntry) error {
	if r.expanded[entry.Name] {
		return nil
	}
	r.expanded[entry.Name] = true
	r.expanding[entry.Name] = true
	defer delete(r.expanding, entry.Name)

	node := domain.Node{
		Name: domain.NewInternedString(entry.Name),
		Kind: domain.KindImport,
	}

	deps, err := r.analyzer.AnalyzeSource(entry.Source)
	if err != nil {
		// The declaration parsed at load time; a failure here means the
		// analyzer cannot see through it. Track it conservatively.
		node.UnknownDeps = true
		r.warnings = append(r.warnings, "declaration of "+entry.Name+" could not be analyzed; assuming unknown dependencies")
		return r.graph.AddNode(node)
	}

	edges, err := r.resolveRefs(deps, false)
	if err != nil {
		return err
	}
	node.Deps = edges

	return r.graph.AddNode(node)
}

func mergeSettings(t domain.Target, opts Options) domain.Target {
	if t.Timeout == 0 {
		t.Timeout = opts.Timeout
	}
	if t.Elapsed == 0 {
		t.Elapsed = opts.Elapsed
	}
	if t.CPU == 0 {
		t.CPU = opts.CPU
	}
	if t.Retries < 0 {
		t.Retries = opts.Retries
	}
	return t
}

func validateOptions(opts Options) error {
	if opts.Timeout < 0 || opts.Elapsed < 0 || opts.CPU < 0 {
		return zerr.Wrap(domain.ErrInvalidOverride, "limit durations must not be negative")
	}
	if opts.Retries < 0 {
		return zerr.Wrap(domain.ErrInvalidOverride, "retries must not be negative")
	}
	return nil
}
