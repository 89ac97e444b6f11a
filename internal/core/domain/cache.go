package domain

import (
	"encoding/json"
	"time"
)

// Fingerprint is a fixed-size content digest rendered as 16 hex digits.
// Identical input content yields an identical fingerprint across runs.
type Fingerprint string

// BuildStatus is the recorded outcome of a target's last build.
type BuildStatus string

const (
	// BuildSucceeded indicates the last build completed and produced a value.
	BuildSucceeded BuildStatus = "succeeded"
	// BuildFailed indicates the last build exhausted its retry budget.
	BuildFailed BuildStatus = "failed"
)

// CacheEntry is the cache record for one target: its serialized value, the
// fingerprints the change detector compares against, and the diagnostic
// metadata of the last build. Entries are owned exclusively by the Store,
// overwritten on rebuild, and removed on clean.
type CacheEntry struct {
	Name         string                 `json:"name"`
	Value        json.RawMessage        `json:"value,omitempty"`
	ValueHash    Fingerprint            `json:"value_hash,omitzero"`
	CommandHash  Fingerprint            `json:"command_hash,omitzero"`
	DepHashes    map[string]Fingerprint `json:"dep_hashes,omitempty"`
	TriggerHash  Fingerprint            `json:"trigger_hash,omitzero"`
	OutputHashes map[string]Fingerprint `json:"output_hashes,omitempty"`

	Status   BuildStatus   `json:"status"`
	Error    string        `json:"error,omitzero"`
	Warnings []string      `json:"warnings,omitempty"`
	Messages []string      `json:"messages,omitempty"`
	Attempts int           `json:"attempts,omitzero"`
	Duration time.Duration `json:"duration,omitzero"`
	BuiltAt  time.Time     `json:"built_at,omitzero"`
}
