package ports

import "go.trai.ch/mallard/internal/core/domain"

// Analyzer statically determines the names a piece of code references,
// without executing it.
//
//go:generate go run go.uber.org/mock/mockgen -source=analyzer.go -destination=mocks/mock_analyzer.go -package=mocks
type Analyzer interface {
	// AnalyzeCommand inspects a target's command expression. A parse failure
	// is reported as a domain.ErrAnalysis error; callers treat it as
	// non-fatal and track the target with unknown dependencies.
	AnalyzeCommand(src string) (domain.CommandDeps, error)

	// AnalyzeSource inspects one environment declaration (a function or
	// value), excluding names bound by its own parameters and locals.
	AnalyzeSource(src string) (domain.CommandDeps, error)
}
