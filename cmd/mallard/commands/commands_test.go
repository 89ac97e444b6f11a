package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mallard/cmd/mallard/commands"
	"go.trai.ch/mallard/internal/adapters/fingerprint"
	"go.trai.ch/mallard/internal/adapters/goenv"
	"go.trai.ch/mallard/internal/adapters/planfile"
	"go.trai.ch/mallard/internal/adapters/store"
	"go.trai.ch/mallard/internal/adapters/telemetry"
	"go.trai.ch/mallard/internal/app"
	"go.trai.ch/mallard/internal/build"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/engine/analysis"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

// newComponents wires a full application against an in-memory cache.
func newComponents() *app.Components {
	plans := planfile.NewLoader()
	envs := goenv.NewOpener()
	analyzer := analysis.New()
	fp := fingerprint.New()
	st := store.NewMemoryStore()
	lg := nopLogger{}
	tracer := telemetry.NewNoOpTracer()

	return &app.Components{
		App:      app.New(plans, envs, analyzer, fp, st, lg, tracer),
		Logger:   lg,
		Store:    st,
		Tracer:   tracer,
		Analyzer: analyzer,
		Fp:       fp,
		Plans:    plans,
		Envs:     envs,
	}
}

// writePlan lays out a small project: an environment file with one helper
// and a three-target chain.
func writePlan(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	envPath := filepath.Join(dir, "env.go")
	require.NoError(t, os.WriteFile(envPath, []byte(`package env

func negate(x int) int {
	return -x
}
`), 0o600))

	planPath := filepath.Join(dir, "plan.yaml")
	doc := fmt.Sprintf(`environment:
  - %s
targets:
  base:
    command: "12"
  negated:
    command: negate(base)
`, envPath)
	require.NoError(t, os.WriteFile(planPath, []byte(doc), 0o600))
	return planPath
}

// execute runs one CLI invocation against shared components and returns the
// captured stdout.
func execute(t *testing.T, components *app.Components, args ...string) (string, error) {
	t.Helper()

	cli := commands.New(components)
	var out, errOut bytes.Buffer
	cli.SetOutput(&out, &errOut)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, newComponents(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, build.Version)
}

func TestListCmd(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)
	out, err := execute(t, newComponents(), "list", "--plan", planPath)
	require.NoError(t, err)
	assert.Equal(t, "base\nnegate\nnegated\n", out)
}

func TestRunThenQuery(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)
	components := newComponents()

	out, err := execute(t, components, "run", "--plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "negated")

	out, err = execute(t, components, "get", "negated")
	require.NoError(t, err)
	assert.Equal(t, "-12\n", out)

	out, err = execute(t, components, "meta", "negated")
	require.NoError(t, err)
	assert.Contains(t, out, "status:   succeeded")
	assert.Contains(t, out, "attempts: 1")

	out, err = execute(t, components, "outdated", "--plan", planPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = execute(t, components, "run", "--plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "up-to-date")
}

func TestRunCmd_FailureStillPrintsReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(`targets:
  broken:
    command: mystery(1)
`), 0o600))

	out, err := execute(t, newComponents(), "run", "--plan", planPath)
	require.ErrorIs(t, err, domain.ErrRunFailed)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "broken")
}

func TestMissingCmd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(`targets:
  out:
    command: mystery(12)
`), 0o600))

	out, err := execute(t, newComponents(), "missing", "--plan", planPath)
	require.NoError(t, err)
	assert.Equal(t, "mystery\n", out)
}

func TestLogCmd(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)
	out, err := execute(t, newComponents(), "log", "--plan", planPath)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^[0-9a-f]{16}  base$`, out)
	assert.Regexp(t, `(?m)^[0-9a-f]{16}  negated$`, out)
}

func TestCleanCmd(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)
	components := newComponents()

	_, err := execute(t, components, "run", "--plan", planPath)
	require.NoError(t, err)

	_, err = execute(t, components, "clean", "base")
	require.NoError(t, err)

	out, err := execute(t, components, "outdated", "--plan", planPath)
	require.NoError(t, err)
	assert.Equal(t, "base\nnegated\n", out)
}

// The --backend and --cache flags swap the store without rebuilding the app.
func TestStoreOverrideFlags(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)
	cacheDir := filepath.Join(t.TempDir(), "cache")
	components := newComponents()

	_, err := execute(t, components, "run", "--plan", planPath, "--backend", "sharded", "--cache", cacheDir)
	require.NoError(t, err)

	// The default in-memory store stayed untouched.
	_, err = execute(t, components, "get", "negated")
	require.ErrorIs(t, err, domain.ErrNoValue)

	out, err := execute(t, components, "get", "negated", "--backend", "sharded", "--cache", cacheDir)
	require.NoError(t, err)
	assert.Equal(t, "-12\n", out)
}

// Mistyped run-mode flags are rejected before anything builds.
func TestRunCmd_UnknownModeFlags(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)

	for _, args := range [][]string{
		{"run", "--plan", planPath, "--runner", "bogus"},
		{"run", "--plan", planPath, "--cache-write", "bogus"},
		{"run", "--plan", planPath, "--memory", "bogus"},
	} {
		components := newComponents()
		_, err := execute(t, components, args...)
		require.ErrorIs(t, err, domain.ErrInvalidOverride)

		_, err = execute(t, components, "get", "negated")
		require.ErrorIs(t, err, domain.ErrNoValue, "nothing was built")
	}
}

func TestUnknownBackend(t *testing.T) {
	t.Parallel()

	planPath := writePlan(t)
	_, err := execute(t, newComponents(), "list", "--plan", planPath, "--backend", "bolt")
	require.ErrorIs(t, err, domain.ErrInvalidOverride)
}
