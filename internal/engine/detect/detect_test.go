package detect_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mallard/internal/adapters/fingerprint"
	"go.trai.ch/mallard/internal/adapters/store"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/mallard/internal/engine/analysis"
	"go.trai.ch/mallard/internal/engine/detect"
	"go.trai.ch/mallard/internal/engine/resolve"
)

// fakeEnv is a mutable environment: tests edit declaration sources between
// detector sessions and steer what trigger expressions evaluate to.
type fakeEnv struct {
	entries map[string]domain.EnvEntry
	evals   map[string]string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		entries: make(map[string]domain.EnvEntry),
		evals:   make(map[string]string),
	}
}

func (e *fakeEnv) define(name, source string) {
	e.entries[name] = domain.EnvEntry{Name: name, Kind: domain.EnvFunc, Source: source}
}

func (e *fakeEnv) Eval(_ context.Context, src string, _ map[string]json.RawMessage) (json.RawMessage, error) {
	value, ok := e.evals[src]
	if !ok {
		return nil, assert.AnError
	}
	return json.RawMessage(value), nil
}

func (e *fakeEnv) Lookup(name string) (domain.EnvEntry, bool) {
	entry, ok := e.entries[name]
	return entry, ok
}

func (e *fakeEnv) Names() []string { return nil }

type fixture struct {
	cfg   *resolve.Config
	env   *fakeEnv
	store ports.Store
	fp    ports.Fingerprinter
}

func newFixture(t *testing.T, env *fakeEnv, targets ...domain.Target) *fixture {
	t.Helper()
	cfg, err := resolve.Resolve(&domain.Plan{Targets: targets}, env, analysis.New(), resolve.Options{})
	require.NoError(t, err)
	return &fixture{cfg: cfg, env: env, store: store.NewMemoryStore(), fp: fingerprint.New()}
}

func (f *fixture) detector() *detect.Detector {
	return detect.New(f.cfg, f.fp, f.store)
}

// record stores the entry a successful build of the target would leave
// behind, snapshotting the current fingerprints.
func (f *fixture) record(t *testing.T, name, value string) {
	t.Helper()
	d := f.detector()
	node, ok := f.cfg.Graph.Node(domain.NewInternedString(name))
	require.True(t, ok)

	deps, err := d.DepFingerprints(node)
	require.NoError(t, err)

	entry := domain.CacheEntry{
		Name:         name,
		Value:        json.RawMessage(value),
		ValueHash:    f.fp.Bytes([]byte(value)),
		CommandHash:  d.CommandFingerprint(node.Command),
		DepHashes:    deps,
		OutputHashes: d.OutputFingerprints(node),
		Status:       domain.BuildSucceeded,
		Attempts:     1,
		BuiltAt:      time.Now().UTC(),
	}

	target := f.cfg.Targets[name]
	if target.Trigger.Mode == domain.TriggerExpr {
		fp, err := d.TriggerFingerprint(context.Background(), target.Trigger.Expr)
		require.NoError(t, err)
		entry.TriggerHash = fp
	}

	require.NoError(t, f.store.Set(entry))
}

func target(name, command string) domain.Target {
	return domain.Target{Name: name, Command: command, Retries: -1}
}

func TestOutdated_NoEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeEnv(), target("base", "12"))

	stale, err := f.detector().Outdated(context.Background(), "base")
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestOutdated_UnknownTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeEnv(), target("base", "12"))

	_, err := f.detector().Outdated(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrTargetNotFound)
}

// After a build that snapshots the current fingerprints, checking again with
// nothing changed must report up to date.
func TestOutdated_UpToDateAfterBuild(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("double", "func double(x int) int { return x * 2 }")
	f := newFixture(t, env,
		target("base", "12"),
		target("doubled", "double(base)"),
	)
	f.record(t, "base", "12")
	f.record(t, "doubled", "24")

	for _, name := range []string{"base", "doubled"} {
		stale, err := f.detector().Outdated(context.Background(), name)
		require.NoError(t, err)
		assert.False(t, stale, name)
	}
}

func TestOutdated_CommandChange(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeEnv(), target("base", "12"))
	f.record(t, "base", "12")

	entry, err := f.store.Get("base")
	require.NoError(t, err)
	entry.CommandHash = "aaaaaaaaaaaaaaaa"
	require.NoError(t, f.store.Set(*entry))

	stale, err := f.detector().Outdated(context.Background(), "base")
	require.NoError(t, err)
	assert.True(t, stale)
}

// Formatting-only edits to a command must not invalidate.
func TestOutdated_CommandWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("double", "func double(x int) int { return x * 2 }")

	f := newFixture(t, env, target("out", "double( 6 )"))
	f.record(t, "out", "12")

	reformatted := newFixture(t, env, target("out", "double(6)"))
	reformatted.store = f.store

	stale, err := reformatted.detector().Outdated(context.Background(), "out")
	require.NoError(t, err)
	assert.False(t, stale)
}

// Editing a helper invalidates its callers, and the merkle import
// fingerprints carry the change through intermediate helpers.
func TestOutdated_HelperEditPropagates(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("outer", "func outer(x int) int { return inner(x) + 1 }")
	env.define("inner", "func inner(x int) int { return x * 2 }")

	f := newFixture(t, env, target("result", "outer(3)"))
	f.record(t, "result", "7")

	stale, err := f.detector().Outdated(context.Background(), "result")
	require.NoError(t, err)
	require.False(t, stale, "unchanged helpers must not invalidate")

	env.define("inner", "func inner(x int) int { return x * 3 }")

	stale, err = f.detector().Outdated(context.Background(), "result")
	require.NoError(t, err)
	assert.True(t, stale, "an edit two levels down must reach the target")
}

// A rebuilt dependency target invalidates its dependents through the value
// hash, but an identical value does not.
func TestOutdated_DependencyValueHash(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("double", "func double(x int) int { return x * 2 }")
	f := newFixture(t, env,
		target("base", "12"),
		target("doubled", "double(base)"),
	)
	f.record(t, "base", "12")
	f.record(t, "doubled", "24")

	// Same value rebuilt: dependents stay current.
	f.record(t, "base", "12")
	stale, err := f.detector().Outdated(context.Background(), "doubled")
	require.NoError(t, err)
	assert.False(t, stale)

	f.record(t, "base", "13")
	stale, err = f.detector().Outdated(context.Background(), "doubled")
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestOutdated_FailedEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, newFakeEnv(), target("base", "12"))
	require.NoError(t, f.store.Set(domain.CacheEntry{
		Name:   "base",
		Status: domain.BuildFailed,
		Error:  "boom",
	}))

	stale, err := f.detector().Outdated(context.Background(), "base")
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestOutdated_FileInput(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("read", "func read(path string) string { return path }")

	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))

	f := newFixture(t, env, target("raw", `read(file_in("`+path+`"))`))
	f.record(t, "raw", `"a,b\n"`)

	stale, err := f.detector().Outdated(context.Background(), "raw")
	require.NoError(t, err)
	require.False(t, stale)

	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))
	stale, err = f.detector().Outdated(context.Background(), "raw")
	require.NoError(t, err)
	assert.True(t, stale, "changed content invalidates")

	f.record(t, "raw", `"a,b\n1,2\n"`)
	require.NoError(t, os.Remove(path))
	stale, err = f.detector().Outdated(context.Background(), "raw")
	require.NoError(t, err)
	assert.True(t, stale, "a deleted input invalidates")
}

func TestOutdated_OutputFile(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("render", "func render(path string) string { return path }")

	out := filepath.Join(t.TempDir(), "report.txt")
	f := newFixture(t, env, target("report", `render(file_out("`+out+`"))`))

	require.NoError(t, os.WriteFile(out, []byte("report"), 0o600))
	f.record(t, "report", `"done"`)

	stale, err := f.detector().Outdated(context.Background(), "report")
	require.NoError(t, err)
	require.False(t, stale)

	require.NoError(t, os.Remove(out))
	stale, err = f.detector().Outdated(context.Background(), "report")
	require.NoError(t, err)
	assert.True(t, stale, "a vanished output invalidates")
}

func TestOutdated_TriggerModes(t *testing.T) {
	t.Parallel()

	t.Run("always", func(t *testing.T) {
		t.Parallel()
		tgt := target("base", "12")
		tgt.Trigger = domain.Trigger{Mode: domain.TriggerAlways}
		f := newFixture(t, newFakeEnv(), tgt)
		f.record(t, "base", "12")

		stale, err := f.detector().Outdated(context.Background(), "base")
		require.NoError(t, err)
		assert.True(t, stale)
	})

	t.Run("never", func(t *testing.T) {
		t.Parallel()
		tgt := target("base", "12")
		tgt.Trigger = domain.Trigger{Mode: domain.TriggerNever}
		f := newFixture(t, newFakeEnv(), tgt)

		// Even a stale command hash does not matter once an entry exists.
		require.NoError(t, f.store.Set(domain.CacheEntry{
			Name:        "base",
			CommandHash: "aaaaaaaaaaaaaaaa",
			Status:      domain.BuildSucceeded,
		}))

		stale, err := f.detector().Outdated(context.Background(), "base")
		require.NoError(t, err)
		assert.False(t, stale)
	})

	t.Run("never still builds a missing entry", func(t *testing.T) {
		t.Parallel()
		tgt := target("base", "12")
		tgt.Trigger = domain.Trigger{Mode: domain.TriggerNever}
		f := newFixture(t, newFakeEnv(), tgt)

		stale, err := f.detector().Outdated(context.Background(), "base")
		require.NoError(t, err)
		assert.True(t, stale)
	})
}

func TestOutdated_TriggerExpression(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("stale", "func stale() bool { return false }")
	env.evals["stale()"] = "false"

	tgt := target("base", "12")
	tgt.Trigger = domain.Trigger{Mode: domain.TriggerExpr, Expr: "stale()"}

	f := newFixture(t, env, tgt)
	f.record(t, "base", "12")

	stale, err := f.detector().Outdated(context.Background(), "base")
	require.NoError(t, err)
	require.False(t, stale)

	env.evals["stale()"] = "true"
	stale, err = f.detector().Outdated(context.Background(), "base")
	require.NoError(t, err)
	assert.True(t, stale, "a changed trigger value invalidates")

	delete(env.evals, "stale()")
	stale, err = f.detector().Outdated(context.Background(), "base")
	require.NoError(t, err)
	assert.True(t, stale, "an unevaluable trigger cannot prove the target current")
}

func TestReport(t *testing.T) {
	t.Parallel()

	env := newFakeEnv()
	env.define("double", "func double(x int) int { return x * 2 }")
	f := newFixture(t, env,
		target("base", "12"),
		target("doubled", "double(base)"),
		target("other", "7"),
	)
	f.record(t, "other", "7")

	outdated, err := f.detector().Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "doubled"}, outdated)
}
