// Package scheduler executes outdated targets in dependency order.
package scheduler

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/mallard/internal/engine/detect"
	"go.trai.ch/mallard/internal/engine/resolve"
	"go.trai.ch/zerr"
)

// TargetState is the scheduling state of one target during a run.
type TargetState string

const (
	// StatePending indicates the target is waiting for its dependencies.
	StatePending TargetState = "pending"
	// StateReady indicates all dependencies are resolved.
	StateReady TargetState = "ready"
	// StateRunning indicates the target's command is being evaluated.
	StateRunning TargetState = "running"
	// StateSucceeded indicates the build completed and produced a value.
	StateSucceeded TargetState = "succeeded"
	// StateFailed indicates the build exhausted its retry budget.
	StateFailed TargetState = "failed"
	// StateSkipped indicates a dependency failed, so the target never ran.
	StateSkipped TargetState = "skipped"
	// StateUpToDate indicates the change detector found nothing to do.
	StateUpToDate TargetState = "up-to-date"
)

// Mode selects how target commands are evaluated.
type Mode string

const (
	// ModeInProcess evaluates commands inline in the coordinator loop,
	// one at a time. Fully deterministic.
	ModeInProcess Mode = "in-process"
	// ModePersistent runs a fixed pool of long-lived workers pulling from
	// a shared queue.
	ModePersistent Mode = "persistent"
	// ModeTransient starts one fresh worker goroutine per target.
	ModeTransient Mode = "transient"
	// ModeHasty builds everything in dependency order, skipping the change
	// detector and the cache entirely.
	ModeHasty Mode = "hasty"
)

// CacheWriteMode selects which side of the coordinator/worker split calls
// Store.Set.
type CacheWriteMode string

const (
	// CacheWriteCoordinator funnels every write through the coordinator
	// loop. Required for backends without per-key atomic writes.
	CacheWriteCoordinator CacheWriteMode = "coordinator"
	// CacheWriteWorker lets each worker write its own entry. Only valid
	// for backends that report SharedWriteSafe.
	CacheWriteWorker CacheWriteMode = "worker"
)

// MemoryStrategy controls how long the coordinator retains loaded target
// values that dependents will need as bindings.
type MemoryStrategy string

const (
	// MemoryKeepAll retains every value for the whole run.
	MemoryKeepAll MemoryStrategy = "keep-all"
	// MemoryMinimal retains nothing; bindings are re-read from the cache.
	MemoryMinimal MemoryStrategy = "minimal"
	// MemoryLookahead counts each value's remaining dependents and evicts
	// it when the count reaches zero.
	MemoryLookahead MemoryStrategy = "lookahead"
)

// Options configure one run.
type Options struct {
	Jobs       int
	Mode       Mode
	CacheWrite CacheWriteMode
	Memory     MemoryStrategy
	KeepGoing  bool
}

// withDefaults fills unset options and rejects values outside the declared
// enums. A mistyped mode must fail the run up front, not degrade it.
func (o Options) withDefaults() (Options, error) {
	if o.Jobs <= 0 {
		o.Jobs = 1
	}
	switch o.Mode {
	case "":
		o.Mode = ModeInProcess
	case ModeInProcess, ModePersistent, ModeTransient, ModeHasty:
	default:
		return o, zerr.With(zerr.Wrap(domain.ErrInvalidOverride, "unknown runner mode"), "mode", string(o.Mode))
	}
	switch o.CacheWrite {
	case "":
		o.CacheWrite = CacheWriteCoordinator
	case CacheWriteCoordinator, CacheWriteWorker:
	default:
		return o, zerr.With(zerr.Wrap(domain.ErrInvalidOverride, "unknown cache-write mode"), "cache-write", string(o.CacheWrite))
	}
	switch o.Memory {
	case "":
		o.Memory = MemoryKeepAll
	case MemoryKeepAll, MemoryMinimal, MemoryLookahead:
	default:
		return o, zerr.With(zerr.Wrap(domain.ErrInvalidOverride, "unknown memory strategy"), "memory", string(o.Memory))
	}
	return o, nil
}

// Outcome is the final state of one target after a run.
type Outcome struct {
	Name     string
	State    TargetState
	Error    string
	Attempts int
	Duration time.Duration
}

// Report summarizes a run: one outcome per selected target.
type Report struct {
	Outcomes []Outcome
}

// Outcome returns the outcome for a target name.
func (r *Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Failed reports whether any target failed.
func (r *Report) Failed() bool {
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			return true
		}
	}
	return false
}

// Scheduler coordinates the build of a resolved configuration.
type Scheduler struct {
	cfg      *resolve.Config
	detector *detect.Detector
	store    ports.Store
	fp       ports.Fingerprinter
	logger   ports.Logger
	tracer   ports.Tracer
}

// New creates a Scheduler. The configuration's graph must have validated.
func New(
	cfg *resolve.Config,
	detector *detect.Detector,
	store ports.Store,
	fp ports.Fingerprinter,
	logger ports.Logger,
	tracer ports.Tracer,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		detector: detector,
		store:    store,
		fp:       fp,
		logger:   logger,
		tracer:   tracer,
	}
}

// Run builds the requested targets and their outdated dependencies. An
// empty target list selects the whole plan. Build failures are reported in
// the returned Report; only configuration and store failures are returned
// as errors.
func (s *Scheduler) Run(ctx context.Context, targets []string, opts Options) (*Report, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	if opts.CacheWrite == CacheWriteWorker && !s.store.SharedWriteSafe() {
		return nil, zerr.Wrap(domain.ErrWorkerWritesUnsupported, "cache backend requires coordinator writes")
	}

	selected, err := s.selectTargets(targets)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	slices.Sort(names)
	s.tracer.EmitPlan(ctx, names)

	if opts.Mode == ModeHasty {
		return s.runHasty(ctx, selected, opts)
	}

	state := s.newRunState(ctx, selected, opts)
	defer state.close()

	// Cancellation is observed once; the nil channel then blocks, so the
	// loop drains in-flight results without spinning on the done case.
	cancelled := ctx.Done()
	for !state.isDone() {
		if err := state.schedule(); err != nil {
			return nil, err
		}

		if state.isDone() {
			break
		}

		if ctx.Err() != nil && state.active == 0 {
			break
		}

		select {
		case res := <-state.resultsCh:
			if err := state.handleResult(res); err != nil {
				return nil, err
			}
		case <-cancelled:
			cancelled = nil
		}
	}

	if err := state.wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, zerr.Wrap(ctx.Err(), "run interrupted")
	}

	return state.report(), nil
}

// selectTargets resolves the requested names to the induced subgraph: the
// requested targets plus every target they transitively depend on.
func (s *Scheduler) selectTargets(targets []string) (map[string]bool, error) {
	selected := make(map[string]bool)

	var queue []domain.InternedString
	if len(targets) == 0 {
		for node := range s.cfg.Graph.Walk() {
			if node.Kind == domain.KindTarget {
				queue = append(queue, node.Name)
			}
		}
	} else {
		for _, name := range targets {
			node, ok := s.cfg.Graph.Node(domain.NewInternedString(name))
			if !ok || node.Kind != domain.KindTarget {
				return nil, zerr.With(domain.ErrTargetNotFound, "name", name)
			}
			queue = append(queue, node.Name)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if selected[name.String()] {
			continue
		}
		selected[name.String()] = true

		node, _ := s.cfg.Graph.Node(name)
		for _, dep := range node.Deps {
			if depNode, ok := s.cfg.Graph.Node(dep); ok && depNode.Kind == domain.KindTarget {
				queue = append(queue, dep)
			}
		}
	}

	return selected, nil
}

type result struct {
	name  string
	entry domain.CacheEntry
	err   error
	// fatal aborts the whole run: a store write failed on the worker side
	// and the cache can no longer be trusted.
	fatal error
}

type runState struct {
	s        *Scheduler
	ctx      context.Context
	opts     Options
	selected map[string]bool

	inDegree  map[string]int
	ready     []string
	active    int
	resultsCh chan result

	workCh chan work
	eg     *errgroup.Group

	outcomes  map[string]*Outcome
	loaded    map[string]json.RawMessage
	remaining map[string]int
}

func (s *Scheduler) newRunState(ctx context.Context, selected map[string]bool, opts Options) *runState {
	state := &runState{
		s:         s,
		ctx:       ctx,
		opts:      opts,
		selected:  selected,
		inDegree:  make(map[string]int, len(selected)),
		resultsCh: make(chan result, opts.Jobs),
		outcomes:  make(map[string]*Outcome, len(selected)),
		loaded:    make(map[string]json.RawMessage),
		remaining: make(map[string]int),
	}

	for name := range selected {
		node, _ := s.cfg.Graph.Node(domain.NewInternedString(name))
		degree := 0
		for _, dep := range node.Deps {
			if selected[dep.String()] {
				degree++
				state.remaining[dep.String()]++
			}
		}
		state.inDegree[name] = degree
		state.outcomes[name] = &Outcome{Name: name, State: StatePending}
	}

	// The initial ready set is name-sorted; afterwards targets become
	// ready in completion order. With one in-process job this makes the
	// whole run deterministic.
	for name, degree := range state.inDegree {
		if degree == 0 {
			state.ready = append(state.ready, name)
		}
	}
	slices.Sort(state.ready)

	if opts.Mode == ModePersistent {
		state.workCh = make(chan work)
		state.eg, _ = errgroup.WithContext(ctx)
		for range opts.Jobs {
			state.eg.Go(func() error {
				for w := range state.workCh {
					state.resultsCh <- s.executeTarget(ctx, w, opts)
				}
				return nil
			})
		}
	}

	return state
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) close() {
	if state.workCh != nil {
		close(state.workCh)
		state.workCh = nil
	}
}

func (state *runState) wait() error {
	state.close()
	if state.eg != nil {
		return state.eg.Wait()
	}
	return nil
}

// schedule moves ready targets into execution until the jobs limit is hit.
// The up-to-date check runs here, on the coordinator, once all of a
// target's dependencies have settled.
func (state *runState) schedule() error {
	for len(state.ready) > 0 && state.active < state.opts.Jobs && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		stale, err := state.s.detector.Outdated(state.ctx, name)
		if err != nil {
			return err
		}
		if !stale {
			state.outcomes[name].State = StateUpToDate
			state.s.logger.Info("target " + name + " is up to date")
			state.settle(name)
			continue
		}

		w, err := state.prepare(name)
		if err != nil {
			return err
		}

		state.outcomes[name].State = StateRunning

		switch state.opts.Mode {
		case ModeInProcess:
			if err := state.handleResult(state.s.executeTarget(state.ctx, w, state.opts)); err != nil {
				return err
			}
		case ModePersistent:
			// active < Jobs guarantees an idle worker, so this send does
			// not block.
			state.active++
			state.workCh <- w
		case ModeTransient:
			state.active++
			go func() {
				state.resultsCh <- state.s.executeTarget(state.ctx, w, state.opts)
			}()
		}
	}
	return nil
}

// prepare assembles everything a worker needs so that workers never touch
// the detector's session state: the effective settings, the dependency
// bindings, and the fingerprint snapshot the new cache entry will record.
func (state *runState) prepare(name string) (work, error) {
	node, _ := state.s.cfg.Graph.Node(domain.NewInternedString(name))
	target := state.s.cfg.Targets[name]

	depHashes, err := state.s.detector.DepFingerprints(node)
	if err != nil {
		return work{}, err
	}

	entry := domain.CacheEntry{
		Name:        name,
		CommandHash: state.s.detector.CommandFingerprint(node.Command),
		DepHashes:   depHashes,
	}
	if target.Trigger.Mode == domain.TriggerExpr {
		fp, err := state.s.detector.TriggerFingerprint(state.ctx, target.Trigger.Expr)
		if err != nil {
			// An empty TriggerHash keeps the target outdated on later runs;
			// say so instead of invalidating silently.
			state.s.logger.Warn("target " + name + " trigger did not evaluate: " + err.Error())
		} else {
			entry.TriggerHash = fp
		}
	}

	bindings, err := state.bindings(node)
	if err != nil {
		return work{}, err
	}

	return work{node: node, target: target, entry: entry, bindings: bindings}, nil
}

// bindings collects the values of a target's dependency targets, from the
// coordinator's loaded map when the memory strategy kept them, otherwise
// from the cache.
func (state *runState) bindings(node domain.Node) (map[string]json.RawMessage, error) {
	bindings := make(map[string]json.RawMessage)
	for _, dep := range node.Deps {
		depNode, ok := state.s.cfg.Graph.Node(dep)
		if !ok || depNode.Kind != domain.KindTarget {
			continue
		}
		name := dep.String()

		if value, ok := state.loaded[name]; ok {
			bindings[name] = value
			continue
		}

		entry, err := state.s.store.Get(name)
		if err != nil {
			return nil, err
		}
		if entry != nil && entry.Value != nil {
			bindings[name] = entry.Value
		}
	}
	return bindings, nil
}

func (state *runState) handleResult(res result) error {
	if state.opts.Mode != ModeInProcess {
		state.active--
	}
	if res.fatal != nil {
		return res.fatal
	}

	outcome := state.outcomes[res.name]
	outcome.Attempts = res.entry.Attempts
	outcome.Duration = res.entry.Duration

	if state.opts.CacheWrite == CacheWriteCoordinator {
		if err := state.s.store.Set(res.entry); err != nil {
			return err
		}
	}

	if res.err != nil {
		outcome.State = StateFailed
		outcome.Error = res.entry.Error
		state.s.logger.Error(zerr.With(zerr.Wrap(res.err, "target failed"), "name", res.name))

		if state.opts.KeepGoing {
			state.settle(res.name)
		} else {
			state.skipDependents(res.name)
		}
		return nil
	}

	outcome.State = StateSucceeded
	state.s.logger.Info("target " + res.name + " built")

	if state.opts.Memory != MemoryMinimal {
		state.loaded[res.name] = res.entry.Value
	}

	state.settle(res.name)
	return nil
}

// settle marks a target finished for scheduling purposes: dependents lose
// one pending dependency, and under the lookahead strategy the values this
// target consumed may now be evicted.
func (state *runState) settle(name string) {
	for _, dependent := range state.s.cfg.Graph.Dependents(domain.NewInternedString(name)) {
		dep := dependent.String()
		if !state.selected[dep] {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}

	if state.opts.Memory == MemoryLookahead {
		node, _ := state.s.cfg.Graph.Node(domain.NewInternedString(name))
		for _, dep := range node.Deps {
			depName := dep.String()
			if !state.selected[depName] {
				continue
			}
			state.remaining[depName]--
			if state.remaining[depName] == 0 {
				delete(state.loaded, depName)
			}
		}
	}
}

// skipDependents marks every transitive dependent of a failed target as
// skipped. Their in-degrees never reach zero, so they simply never become
// ready; independent subgraphs keep building.
func (state *runState) skipDependents(name string) {
	queue := []domain.InternedString{domain.NewInternedString(name)}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range state.s.cfg.Graph.Dependents(current) {
			dep := dependent.String()
			if !state.selected[dep] {
				continue
			}
			outcome := state.outcomes[dep]
			if outcome.State != StatePending {
				continue
			}
			outcome.State = StateSkipped
			state.s.logger.Warn("target " + dep + " skipped: dependency " + current.String() + " failed")
			queue = append(queue, dependent)
		}
	}
}

func (state *runState) report() *Report {
	report := &Report{Outcomes: make([]Outcome, 0, len(state.outcomes))}
	for _, outcome := range state.outcomes {
		report.Outcomes = append(report.Outcomes, *outcome)
	}
	slices.SortFunc(report.Outcomes, func(a, b Outcome) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return report
}
