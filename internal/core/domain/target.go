package domain

import "time"

// Target is one row of a plan: a named, buildable unit of work with a
// command and optional per-target overrides. Zero values for the override
// columns mean "inherit the run-level default"; Retries uses -1 for inherit
// because 0 is a meaningful budget.
type Target struct {
	Name    string
	Command string
	Trigger Trigger
	Timeout time.Duration
	Elapsed time.Duration
	CPU     time.Duration
	Retries int
}

// Plan is the ordered table of target definitions plus the environment
// source files whose functions and objects commands may reference.
type Plan struct {
	Environment []string
	Targets     []Target
}

// Target returns the plan row with the given name.
func (p *Plan) Target(name string) (Target, bool) {
	for _, t := range p.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}
