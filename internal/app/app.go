// Package app implements the application layer for mallard.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/mallard/internal/engine/detect"
	"go.trai.ch/mallard/internal/engine/resolve"
	"go.trai.ch/mallard/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	plans    ports.PlanLoader
	envs     ports.EnvironmentOpener
	analyzer ports.Analyzer
	fp       ports.Fingerprinter
	store    ports.Store
	logger   ports.Logger
	tracer   ports.Tracer
}

// New creates a new App instance.
func New(
	plans ports.PlanLoader,
	envs ports.EnvironmentOpener,
	analyzer ports.Analyzer,
	fp ports.Fingerprinter,
	store ports.Store,
	logger ports.Logger,
	tracer ports.Tracer,
) *App {
	return &App{
		plans:    plans,
		envs:     envs,
		analyzer: analyzer,
		fp:       fp,
		store:    store,
		logger:   logger,
		tracer:   tracer,
	}
}

// WithStore returns a copy of the App using the given store. The CLI uses
// this when the --cache or --backend flags override the default backend.
func (a *App) WithStore(store ports.Store) *App {
	cp := *a
	cp.store = store
	return &cp
}

// RunOptions configure one build run.
type RunOptions struct {
	PlanPath   string
	Targets    []string
	Jobs       int
	Mode       scheduler.Mode
	CacheWrite scheduler.CacheWriteMode
	Memory     scheduler.MemoryStrategy
	Timeout    time.Duration
	Elapsed    time.Duration
	CPU        time.Duration
	Retries    int
	KeepGoing  bool
	LogPath    string
}

// resolve loads the plan and its environment and produces the validated
// configuration every operation works from.
func (a *App) resolve(planPath string, opts resolve.Options) (*resolve.Config, error) {
	plan, err := a.plans.Load(planPath)
	if err != nil {
		return nil, err
	}

	env, err := a.envs.Open(plan.Environment)
	if err != nil {
		return nil, err
	}

	cfg, err := resolve.Resolve(plan, env, a.analyzer, opts)
	if err != nil {
		return nil, err
	}

	for _, warning := range cfg.Warnings {
		a.logger.Warn(warning)
	}
	return cfg, nil
}

// Run builds the requested targets. Build failures are reported per target
// and surface as domain.ErrRunFailed once the run completes; configuration
// and store failures abort immediately.
func (a *App) Run(ctx context.Context, opts RunOptions) (*scheduler.Report, error) {
	cfg, err := a.resolve(opts.PlanPath, resolve.Options{
		Timeout: opts.Timeout,
		Elapsed: opts.Elapsed,
		CPU:     opts.CPU,
		Retries: opts.Retries,
	})
	if err != nil {
		return nil, err
	}

	detector := detect.New(cfg, a.fp, a.store)
	sched := scheduler.New(cfg, detector, a.store, a.fp, a.logger, a.tracer)

	report, err := sched.Run(ctx, opts.Targets, scheduler.Options{
		Jobs:       opts.Jobs,
		Mode:       opts.Mode,
		CacheWrite: opts.CacheWrite,
		Memory:     opts.Memory,
		KeepGoing:  opts.KeepGoing,
	})
	if err != nil {
		return nil, err
	}

	if opts.LogPath != "" {
		if err := a.writeCacheLog(cfg, opts.LogPath); err != nil {
			return nil, err
		}
	}

	if report.Failed() {
		return report, domain.ErrRunFailed
	}
	return report, nil
}

// Outdated returns the names of targets the next run would rebuild, sorted.
func (a *App) Outdated(ctx context.Context, planPath string) ([]string, error) {
	cfg, err := a.resolve(planPath, resolve.Options{})
	if err != nil {
		return nil, err
	}
	return detect.New(cfg, a.fp, a.store).Report(ctx)
}

// List returns every tracked name in the plan's graph, sorted: targets,
// imports, and file inputs.
func (a *App) List(planPath string) ([]string, error) {
	cfg, err := a.resolve(planPath, resolve.Options{})
	if err != nil {
		return nil, err
	}
	return cfg.Graph.Names(), nil
}

// MissingImports returns names referenced by commands that are neither
// targets nor defined by the environment, sorted.
func (a *App) MissingImports(planPath string) ([]string, error) {
	cfg, err := a.resolve(planPath, resolve.Options{})
	if err != nil {
		return nil, err
	}
	return cfg.MissingImports(), nil
}

// Get returns a target's current value from the cache.
func (a *App) Get(name string) (json.RawMessage, error) {
	entry, err := a.store.Get(name)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Value == nil {
		return nil, zerr.With(domain.ErrNoValue, "name", name)
	}
	return entry.Value, nil
}

// Metadata returns the diagnostic record of a target's last build.
func (a *App) Metadata(name string) (*domain.CacheEntry, error) {
	entry, err := a.store.Get(name)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, zerr.With(domain.ErrNoValue, "name", name)
	}
	return entry, nil
}

// CacheLog writes one line per tracked name, `<fingerprint>  <name>`,
// name-sorted. Two logs from different points in time line-diff into
// exactly the set of changed nodes.
func (a *App) CacheLog(planPath string, w io.Writer) error {
	cfg, err := a.resolve(planPath, resolve.Options{})
	if err != nil {
		return err
	}
	return a.cacheLog(cfg, w)
}

func (a *App) cacheLog(cfg *resolve.Config, w io.Writer) error {
	detector := detect.New(cfg, a.fp, a.store)

	for _, name := range cfg.Graph.Names() {
		fp, err := detector.Fingerprint(domain.NewInternedString(name))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s  %s\n", fp, name); err != nil {
			return zerr.Wrap(err, "failed to write cache log")
		}
	}
	return nil
}

func (a *App) writeCacheLog(cfg *resolve.Config, path string) error {
	//nolint:gosec // The log path is user input by design
	f, err := os.Create(path)
	if err != nil {
		return zerr.Wrap(err, "failed to create cache log file")
	}
	if err := a.cacheLog(cfg, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Clean removes cache entries. With no names it removes every entry; with
// destroy it also removes the backing storage itself.
func (a *App) Clean(names []string, destroy bool) error {
	if destroy {
		return a.store.Destroy()
	}

	if len(names) == 0 {
		all, err := a.store.List()
		if err != nil {
			return err
		}
		names = all
	}

	for _, name := range names {
		if err := a.store.Delete(name); err != nil {
			return err
		}
	}
	return nil
}
