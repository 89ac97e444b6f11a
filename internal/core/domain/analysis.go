package domain

// CommandDeps is the result of statically analyzing one command or one
// environment declaration.
type CommandDeps struct {
	// Refs are plain identifiers in reference position: candidate targets,
	// environment helpers, or missing imports.
	Refs []string

	// Qualified are identifiers that only ever appear as the base of a
	// selector (x in x.Field). When such a name is not otherwise known it is
	// treated as a package qualifier, not a dependency.
	Qualified []string

	// FileIns are paths declared with file_in.
	FileIns []string

	// FileOuts are paths declared with file_out.
	FileOuts []string

	// DocIns are doc_in references of the form "path#chunk".
	DocIns []string
}

// EnvEntryKind distinguishes environment declarations.
type EnvEntryKind string

const (
	// EnvFunc is a function declaration.
	EnvFunc EnvEntryKind = "func"
	// EnvValue is a var or const declaration.
	EnvValue EnvEntryKind = "value"
)

// EnvEntry is one named declaration from the loaded environment.
type EnvEntry struct {
	Name   string
	Kind   EnvEntryKind
	Source string
}
