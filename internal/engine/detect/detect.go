// Package detect decides which targets are outdated by comparing current
// fingerprints against the snapshots recorded in the cache.
package detect

import (
	"context"
	"errors"
	"io/fs"
	"slices"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/mallard/internal/engine/analysis"
	"go.trai.ch/mallard/internal/engine/resolve"
	"go.trai.ch/zerr"
)

// Record framing tags. Each fingerprint kind gets its own leading part so
// that, say, a file whose content equals an import's source still hashes
// differently.
var (
	tagCommand       = []byte("command")
	tagImport        = []byte("import")
	tagFile          = []byte("file")
	tagTrigger       = []byte("trigger")
	tagMissingFile   = []byte("file-missing")
	tagMissingImport = []byte("import-missing")
	tagUnknown       = []byte("deps-unknown")
	tagNoValue       = []byte("no-value")
)

// Detector computes fingerprints for one run. Import and file fingerprints
// are memoized for the session; a target's fingerprint is its value hash
// read live from the cache, because targets rebuild mid-run.
//
// A Detector is driven by the coordinator loop only and is not safe for
// concurrent use.
type Detector struct {
	cfg   *resolve.Config
	fp    ports.Fingerprinter
	store ports.Store
	memo  map[domain.InternedString]domain.Fingerprint
}

// New creates a Detector for one run over the given configuration.
func New(cfg *resolve.Config, fp ports.Fingerprinter, store ports.Store) *Detector {
	return &Detector{
		cfg:   cfg,
		fp:    fp,
		store: store,
		memo:  make(map[domain.InternedString]domain.Fingerprint),
	}
}

// CommandFingerprint digests a command expression. The source is normalized
// first, so formatting-only edits do not invalidate targets.
func (d *Detector) CommandFingerprint(src string) domain.Fingerprint {
	return d.fp.Record(tagCommand, []byte(analysis.Normalize(src)))
}

// TriggerFingerprint evaluates a trigger expression in the environment and
// digests the resulting value.
func (d *Detector) TriggerFingerprint(ctx context.Context, expr string) (domain.Fingerprint, error) {
	value, err := d.cfg.Env.Eval(ctx, expr, nil)
	if err != nil {
		return "", zerr.Wrap(err, "trigger expression failed to evaluate")
	}
	return d.fp.Record(tagTrigger, value), nil
}

// Fingerprint returns the current fingerprint of any non-target node.
// Import fingerprints are merkle digests: they cover the declaration's
// source and the fingerprints of everything it references, so an edit deep
// in a helper chain surfaces in every caller.
func (d *Detector) Fingerprint(name domain.InternedString) (domain.Fingerprint, error) {
	node, ok := d.cfg.Graph.Node(name)
	if !ok {
		return "", zerr.With(domain.ErrMissingDependency, "dependency", name.String())
	}

	if node.Kind == domain.KindTarget {
		return d.targetFingerprint(node)
	}

	if fp, ok := d.memo[name]; ok {
		return fp, nil
	}

	var fp domain.Fingerprint
	var err error
	switch node.Kind {
	case domain.KindFile:
		fp, err = d.fileFingerprint(node)
	case domain.KindImport:
		fp, err = d.importFingerprint(node)
	}
	if err != nil {
		return "", err
	}

	d.memo[name] = fp
	return fp, nil
}

// targetFingerprint is the value hash the cache currently records. Not
// memoized: a dependency target may have been rebuilt since the session
// started.
func (d *Detector) targetFingerprint(node domain.Node) (domain.Fingerprint, error) {
	entry, err := d.store.Get(node.Name.String())
	if err != nil {
		return "", err
	}
	if entry == nil || entry.ValueHash == "" {
		return d.fp.Record(tagNoValue, []byte(node.Name.String())), nil
	}
	return entry.ValueHash, nil
}

// fileFingerprint digests the file's content. An absent file gets a stable
// sentinel fingerprint so "missing" is distinguishable from every content.
func (d *Detector) fileFingerprint(node domain.Node) (domain.Fingerprint, error) {
	fp, err := d.fp.File(node.Name.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return d.fp.Record(tagMissingFile, []byte(node.Name.String())), nil
		}
		return "", err
	}
	return d.fp.Record(tagFile, []byte(fp)), nil
}

func (d *Detector) importFingerprint(node domain.Node) (domain.Fingerprint, error) {
	name := node.Name.String()
	if node.Missing {
		return d.fp.Record(tagMissingImport, []byte(name)), nil
	}

	entry, ok := d.cfg.Env.Lookup(name)
	if !ok {
		return d.fp.Record(tagMissingImport, []byte(name)), nil
	}

	parts := [][]byte{tagImport, []byte(entry.Source)}
	if node.UnknownDeps {
		parts = append(parts, tagUnknown)
	}
	for _, dep := range sortedDeps(node.Deps) {
		depFP, err := d.Fingerprint(dep)
		if err != nil {
			return "", err
		}
		parts = append(parts, []byte(dep.String()), []byte(depFP))
	}
	return d.fp.Record(parts...), nil
}

// DepFingerprints returns the current fingerprint of each direct dependency
// of a target, keyed by name. This is both the comparison input for
// Outdated and the snapshot a fresh cache entry records.
func (d *Detector) DepFingerprints(node domain.Node) (map[string]domain.Fingerprint, error) {
	if len(node.Deps) == 0 {
		return nil, nil
	}
	fps := make(map[string]domain.Fingerprint, len(node.Deps))
	for _, dep := range node.Deps {
		fp, err := d.Fingerprint(dep)
		if err != nil {
			return nil, err
		}
		fps[dep.String()] = fp
	}
	return fps, nil
}

// OutputFingerprints digests a target's declared output files as they exist
// on disk right now.
func (d *Detector) OutputFingerprints(node domain.Node) map[string]domain.Fingerprint {
	if len(node.FileOutputs) == 0 {
		return nil
	}
	fps := make(map[string]domain.Fingerprint, len(node.FileOutputs))
	for _, path := range node.FileOutputs {
		fp, err := d.fp.File(path)
		if err != nil {
			fps[path] = d.fp.Record(tagMissingFile, []byte(path))
			continue
		}
		fps[path] = d.fp.Record(tagFile, []byte(fp))
	}
	return fps
}

// Outdated reports whether the named target must be rebuilt. Unchanged
// inputs always report false; any difference from the recorded snapshot, a
// missing or failed entry, or unanalyzable dependencies report true.
func (d *Detector) Outdated(ctx context.Context, name string) (bool, error) {
	node, ok := d.cfg.Graph.Node(domain.NewInternedString(name))
	if !ok || node.Kind != domain.KindTarget {
		return false, zerr.With(domain.ErrTargetNotFound, "name", name)
	}

	if node.UnknownDeps {
		return true, nil
	}

	entry, err := d.store.Get(name)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return true, nil
	}

	target := d.cfg.Targets[name]
	switch target.Trigger.Mode {
	case domain.TriggerAlways:
		return true, nil
	case domain.TriggerNever:
		return false, nil
	}

	if entry.Status != domain.BuildSucceeded {
		return true, nil
	}

	if d.CommandFingerprint(node.Command) != entry.CommandHash {
		return true, nil
	}

	current, err := d.DepFingerprints(node)
	if err != nil {
		return false, err
	}
	if len(current) != len(entry.DepHashes) {
		return true, nil
	}
	for dep, fp := range current {
		if entry.DepHashes[dep] != fp {
			return true, nil
		}
	}

	if target.Trigger.Mode == domain.TriggerExpr {
		fp, err := d.TriggerFingerprint(ctx, target.Trigger.Expr)
		if err != nil {
			// A trigger that cannot be evaluated cannot prove the target
			// current.
			return true, nil
		}
		if fp != entry.TriggerHash {
			return true, nil
		}
	}

	for path, fp := range d.OutputFingerprints(node) {
		if entry.OutputHashes[path] != fp {
			return true, nil
		}
	}

	return false, nil
}

// Report returns the names of all outdated targets, sorted.
func (d *Detector) Report(ctx context.Context) ([]string, error) {
	var outdated []string
	for node := range d.cfg.Graph.Walk() {
		if node.Kind != domain.KindTarget {
			continue
		}
		stale, err := d.Outdated(ctx, node.Name.String())
		if err != nil {
			return nil, err
		}
		if stale {
			outdated = append(outdated, node.Name.String())
		}
	}
	slices.Sort(outdated)
	return outdated, nil
}

func sortedDeps(deps []domain.InternedString) []domain.InternedString {
	sorted := slices.Clone(deps)
	slices.SortFunc(sorted, func(a, b domain.InternedString) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	})
	return sorted
}
