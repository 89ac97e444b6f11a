// Package ports defines the core interfaces of the engine.
package ports

import (
	"context"
	"encoding/json"

	"go.trai.ch/mallard/internal/core/domain"
)

// Environment is the loaded set of user-defined helper functions and objects
// that commands may reference, together with the interpreter that evaluates
// commands and trigger expressions against it.
//
// Eval must be safe for concurrent use: worker goroutines evaluate commands
// in parallel and must not observe each other's bindings.
//
//go:generate go run go.uber.org/mock/mockgen -source=environment.go -destination=mocks/mock_environment.go -package=mocks
type Environment interface {
	// Eval evaluates the expression src with the given dependency values
	// bound in scope and returns the result serialized as JSON.
	Eval(ctx context.Context, src string, bindings map[string]json.RawMessage) (json.RawMessage, error)

	// Lookup returns the declaration for a name defined in the environment.
	Lookup(name string) (domain.EnvEntry, bool)

	// Names returns all declared names, sorted.
	Names() []string
}

// EnvironmentOpener loads environment source files into an Environment.
type EnvironmentOpener interface {
	// Open parses and loads the given source files. Loading fails fast on
	// unparsable source; this is a configuration error.
	Open(files []string) (Environment, error)
}
