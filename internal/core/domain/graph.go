// Package domain contains the core models for plans, the dependency graph,
// fingerprints, and cache entries.
package domain

import (
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

// NodeKind distinguishes the three kinds of tracked names.
type NodeKind string

const (
	// KindTarget is a buildable plan target.
	KindTarget NodeKind = "target"
	// KindImport is an environment function or object a command references.
	// Imports are fingerprinted for change detection but never built.
	KindImport NodeKind = "import"
	// KindFile is a file input declared with file_in or doc_in.
	KindFile NodeKind = "file"
)

// Node is one vertex of the dependency graph.
type Node struct {
	Name InternedString
	Kind NodeKind

	// Command is the target's command source. Empty for imports and files.
	Command string

	// Deps are the direct dependencies: an edge Node -> dep means dep must
	// be resolved or up to date before Node builds.
	Deps []InternedString

	// FileOutputs are the paths declared with file_out in the command.
	FileOutputs []string

	// DocFragment is the named-chunk part of a doc_in reference; the file
	// part lives in Name. Empty for everything else.
	DocFragment string

	// Missing marks an import that commands reference but the environment
	// does not define.
	Missing bool

	// UnknownDeps marks a target whose command could not be statically
	// analyzed. Such targets are treated as unconditionally outdated.
	UnknownDeps bool
}

// Graph is the directed acyclic dependency graph over targets, imports, and
// file inputs.
type Graph struct {
	nodes          map[InternedString]Node
	executionOrder []InternedString
	dependents     map[InternedString][]InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[InternedString]Node),
	}
}

// AddNode adds a node to the graph. Adding a target with a name that already
// exists is an error; re-adding an import or file node is a no-op so that
// several commands may reference the same helper or file.
func (g *Graph) AddNode(n Node) error {
	if existing, ok := g.nodes[n.Name]; ok {
		if n.Kind == KindTarget && existing.Kind == KindTarget {
			return zerr.With(ErrTargetAlreadyExists, "target", n.Name.String())
		}
		return nil
	}
	g.nodes[n.Name] = n
	return nil
}

// Node returns the node with the given name.
func (g *Graph) Node(name InternedString) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Validate checks for cycles with a depth-first topological sort and, on
// success, populates the execution order and the dependents index. Roots are
// visited in name order so the resulting order is deterministic.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.nodes))
	g.dependents = make(map[InternedString][]InternedString, len(g.nodes))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		node, exists := g.nodes[u]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", u.String())
		}

		for _, dep := range node.Deps {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, name := range g.sortedNames() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	for _, name := range g.executionOrder {
		for _, dep := range g.nodes[name].Deps {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

func (g *Graph) sortedNames() []InternedString {
	names := make([]InternedString, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b InternedString) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	})
	return names
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Walk returns an iterator that yields nodes in execution order: every
// dependency before its dependents. Validate must have succeeded first.
func (g *Graph) Walk() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.nodes[name]) {
				return
			}
		}
	}
}

// Dependents returns the names that directly depend on the given node.
// Validate must have succeeded first.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Names returns all tracked names, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name.String())
	}
	slices.Sort(names)
	return names
}
