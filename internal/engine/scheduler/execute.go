package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/zerr"
)

// work is one unit handed to a worker. Everything in it was assembled on
// the coordinator; workers only evaluate and, in worker-write mode, store.
type work struct {
	node     domain.Node
	target   domain.Target
	entry    domain.CacheEntry
	bindings map[string]json.RawMessage
}

// executeTarget runs one target's full attempt budget and returns the
// finished cache entry. Failed builds produce an entry too, so the failure
// and its diagnostics survive the run.
func (s *Scheduler) executeTarget(ctx context.Context, w work, opts Options) result {
	name := w.node.Name.String()
	ctx, span := s.tracer.Start(ctx, "build "+name)
	defer span.End()

	s.logger.Info("building " + name)

	start := time.Now()
	entry := w.entry
	var value json.RawMessage
	var evalErr error

	budget := w.target.Retries + 1
	for attempt := 1; attempt <= budget; attempt++ {
		entry.Attempts = attempt
		value, evalErr = s.evalAttempt(ctx, w)
		if evalErr == nil {
			break
		}
		if ctx.Err() != nil {
			// The run itself was interrupted; retrying cannot help.
			break
		}
		if attempt < budget {
			s.logger.Warn(fmt.Sprintf("target %s attempt %d/%d failed: %v", name, attempt, budget, evalErr))
		}
	}

	entry.Duration = time.Since(start)
	entry.BuiltAt = time.Now()

	if evalErr != nil {
		entry.Status = domain.BuildFailed
		entry.Error = evalErr.Error()
		span.RecordError(evalErr)
	} else {
		entry.Status = domain.BuildSucceeded
		entry.Value = value
		entry.ValueHash = s.fp.Bytes(value)
		entry.OutputHashes = s.detector.OutputFingerprints(w.node)
	}
	span.SetAttribute("attempts", entry.Attempts)
	span.SetAttribute("status", string(entry.Status))

	res := result{name: name, entry: entry, err: evalErr}
	if opts.CacheWrite == CacheWriteWorker {
		if err := s.store.Set(entry); err != nil {
			res.fatal = err
		}
	}
	return res
}

// evalAttempt performs a single evaluation under the target's time limits.
// The timeout, elapsed, and cpu budgets all bound the attempt as deadlines;
// the tightest one wins. An attempt cut off by its deadline is abandoned
// and the limit error consumes the attempt.
func (s *Scheduler) evalAttempt(ctx context.Context, w work) (json.RawMessage, error) {
	evalCtx := ctx
	if limit := minLimit(w.target.Timeout, w.target.Elapsed, w.target.CPU); limit > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	value, err := s.cfg.Env.Eval(evalCtx, w.node.Command, w.bindings)
	if err != nil {
		if evalCtx.Err() != nil && ctx.Err() == nil {
			return nil, zerr.Wrap(domain.ErrLimitExceeded, err.Error())
		}
		return nil, zerr.Wrap(domain.ErrBuildFailed, err.Error())
	}
	return value, nil
}

func minLimit(limits ...time.Duration) time.Duration {
	var tightest time.Duration
	for _, l := range limits {
		if l > 0 && (tightest == 0 || l < tightest) {
			tightest = l
		}
	}
	return tightest
}

// runHasty builds every selected target in dependency order, skipping the
// change detector and the cache entirely. Values live only in memory for
// the duration of the run.
func (s *Scheduler) runHasty(ctx context.Context, selected map[string]bool, opts Options) (*Report, error) {
	outcomes := make(map[string]*Outcome, len(selected))
	loaded := make(map[string]json.RawMessage, len(selected))

	for node := range s.cfg.Graph.Walk() {
		name := node.Name.String()
		if node.Kind != domain.KindTarget || !selected[name] {
			continue
		}
		if ctx.Err() != nil {
			return nil, zerr.Wrap(ctx.Err(), "run interrupted")
		}

		outcome := &Outcome{Name: name, State: StatePending}
		outcomes[name] = outcome

		if !opts.KeepGoing && blocked(node, outcomes) {
			outcome.State = StateSkipped
			s.logger.Warn("target " + name + " skipped: a dependency failed")
			continue
		}

		bindings := make(map[string]json.RawMessage)
		for _, dep := range node.Deps {
			if value, ok := loaded[dep.String()]; ok {
				bindings[dep.String()] = value
			}
		}

		w := work{
			node:     node,
			target:   s.cfg.Targets[name],
			entry:    domain.CacheEntry{Name: name},
			bindings: bindings,
		}
		res := s.executeTarget(ctx, w, Options{CacheWrite: CacheWriteCoordinator})

		outcome.Attempts = res.entry.Attempts
		outcome.Duration = res.entry.Duration
		if res.err != nil {
			outcome.State = StateFailed
			outcome.Error = res.entry.Error
			s.logger.Error(zerr.With(zerr.Wrap(res.err, "target failed"), "name", name))
			continue
		}
		outcome.State = StateSucceeded
		loaded[name] = res.entry.Value
	}

	report := &Report{Outcomes: make([]Outcome, 0, len(outcomes))}
	for _, outcome := range outcomes {
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
	return report, nil
}

func blocked(node domain.Node, outcomes map[string]*Outcome) bool {
	for _, dep := range node.Deps {
		if o, ok := outcomes[dep.String()]; ok && (o.State == StateFailed || o.State == StateSkipped) {
			return true
		}
	}
	return false
}
