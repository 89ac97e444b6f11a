package domain

import "go.trai.ch/zerr"

// Configuration errors. These are fatal and reported before any building
// starts; they are never retried.
var (
	// ErrTargetAlreadyExists is returned when a plan declares two targets with the same name.
	ErrTargetAlreadyExists = zerr.New("target already exists")

	// ErrMissingDependency is returned when a graph node references a dependency that has no node.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when the dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTargetNotFound is returned when a requested target is not part of the plan.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrInvalidOverride is returned when a per-target override column is ill-typed.
	ErrInvalidOverride = zerr.New("invalid override")

	// ErrInvalidTrigger is returned when a trigger column is neither a mode keyword nor a parsable expression.
	ErrInvalidTrigger = zerr.New("invalid trigger")

	// ErrWorkerWritesUnsupported is returned when worker-writes caching is requested
	// for a backend that requires a single writer.
	ErrWorkerWritesUnsupported = zerr.New("cache backend requires coordinator-writes")
)

// Analysis errors are non-fatal: the target is tracked with unknown
// dependencies and treated as unconditionally outdated.
var (
	// ErrAnalysis is returned when a command's dependencies could not be statically determined.
	ErrAnalysis = zerr.New("command analysis failed")
)

// Build and run errors.
var (
	// ErrBuildFailed is returned when a target's command raised a runtime fault
	// and its retry budget is exhausted.
	ErrBuildFailed = zerr.New("build failed")

	// ErrLimitExceeded is returned when a target exceeded its timeout, elapsed,
	// or cpu limit. It consumes a retry attempt like any build error.
	ErrLimitExceeded = zerr.New("resource limit exceeded")

	// ErrRunFailed is the summary error for a run with at least one failed target.
	ErrRunFailed = zerr.New("run finished with failures")
)

// Cache backend errors are fatal to the run: target state could become
// inconsistent if they were ignored.
var (
	// ErrStore is returned when the cache backend fails.
	ErrStore = zerr.New("cache backend failure")

	// ErrNoValue is returned when a value or metadata query names a target
	// that has no cache entry.
	ErrNoValue = zerr.New("no cached value")
)
