// Package planfile loads and validates the YAML plan file.
package planfile

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the plan file looked up when no --plan flag is given.
const DefaultPath = "plan.yaml"

// planDTO mirrors the top level of the plan file. Targets stays a raw node
// so the loader can keep document order and spot duplicate names, which a
// plain map would silently merge.
type planDTO struct {
	Environment []string  `yaml:"environment"`
	Targets     yaml.Node `yaml:"targets"`
}

type targetDTO struct {
	Command string `yaml:"command"`
	Trigger string `yaml:"trigger"`
	Timeout string `yaml:"timeout"`
	Elapsed string `yaml:"elapsed"`
	CPU     string `yaml:"cpu"`
	Retries *int   `yaml:"retries"`
}

var _ ports.PlanLoader = (*Loader)(nil)

// Loader reads plans from the filesystem.
type Loader struct{}

// NewLoader creates a new plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and validates the plan at the given path.
func (l *Loader) Load(path string) (*domain.Plan, error) {
	//nolint:gosec // The plan path is user input by design
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read plan file"), "path", path)
	}
	plan, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return plan, nil
}

// Parse decodes and validates a plan document.
func Parse(data []byte) (*domain.Plan, error) {
	var dto planDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, zerr.Wrap(err, "failed to parse plan file")
	}

	plan := &domain.Plan{Environment: dto.Environment}

	if dto.Targets.Kind == 0 || dto.Targets.Tag == "!!null" {
		return plan, nil
	}
	if dto.Targets.Kind != yaml.MappingNode {
		return nil, zerr.Wrap(domain.ErrInvalidOverride, "targets must be a mapping of name to definition")
	}

	seen := make(map[string]bool)
	for i := 0; i < len(dto.Targets.Content); i += 2 {
		keyNode, valNode := dto.Targets.Content[i], dto.Targets.Content[i+1]

		name := keyNode.Value
		if seen[name] {
			return nil, zerr.With(domain.ErrTargetAlreadyExists, "name", name)
		}
		seen[name] = true

		var raw targetDTO
		if err := valNode.Decode(&raw); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to decode target"), "name", name)
		}

		target, err := buildTarget(name, raw)
		if err != nil {
			return nil, err
		}
		plan.Targets = append(plan.Targets, target)
	}

	return plan, nil
}

func buildTarget(name string, raw targetDTO) (domain.Target, error) {
	fail := func(err error, msg string) (domain.Target, error) {
		return domain.Target{}, zerr.With(zerr.Wrap(err, msg), "name", name)
	}

	if strings.TrimSpace(name) == "" {
		return fail(domain.ErrInvalidOverride, "target name must not be empty")
	}
	if strings.TrimSpace(raw.Command) == "" {
		return fail(domain.ErrInvalidOverride, "target has no command")
	}

	target := domain.Target{
		Name:    name,
		Command: raw.Command,
		Retries: -1,
	}

	target.Trigger = domain.ParseTrigger(raw.Trigger)

	for _, col := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", raw.Timeout, &target.Timeout},
		{"elapsed", raw.Elapsed, &target.Elapsed},
		{"cpu", raw.CPU, &target.CPU},
	} {
		if col.value == "" {
			continue
		}
		d, err := time.ParseDuration(col.value)
		if err != nil {
			return fail(domain.ErrInvalidOverride, "invalid "+col.name+" duration "+strconv.Quote(col.value))
		}
		if d < 0 {
			return fail(domain.ErrInvalidOverride, col.name+" must not be negative")
		}
		*col.dst = d
	}

	if raw.Retries != nil {
		if *raw.Retries < 0 {
			return fail(domain.ErrInvalidOverride, "retries must not be negative")
		}
		target.Retries = *raw.Retries
	}

	return target, nil
}
