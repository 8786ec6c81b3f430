// Partial configuration updates with immutable-field protection. The control
// surface accepts JSON patches; fields the daemon cannot change while running
// are rejected rather than silently ignored.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Error types for merge operations
var (
	// ErrImmutableField is returned when attempting to modify an immutable field
	ErrImmutableField = errors.New("cannot modify immutable field")

	// ErrInvalidConfig is returned when the merged config fails validation
	ErrInvalidConfig = errors.New("invalid configuration after merge")
)

// immutableFields cannot change while the daemon is running: the data
// directory anchors the socket, journal, and managed environment, and the
// listen addresses are already bound.
var immutableFields = []string{
	"data_dir",
	"listen",
	"gateway_listen",
}

// ImmutableFieldError provides details about which immutable field was modified
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrImmutableField.Error(), e.Field)
}

func (e *ImmutableFieldError) Unwrap() error {
	return ErrImmutableField
}

// FieldChange records one changed top-level field.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// ConfigDiff captures which fields a merge changed, keyed by JSON field name.
type ConfigDiff struct {
	Changed map[string]FieldChange `json:"changed"`
}

// NewConfigDiff creates an empty diff.
func NewConfigDiff() *ConfigDiff {
	return &ConfigDiff{Changed: make(map[string]FieldChange)}
}

// IsEmpty reports whether the merge changed anything.
func (d *ConfigDiff) IsEmpty() bool {
	return len(d.Changed) == 0
}

// Fields returns the changed field names in sorted order.
func (d *ConfigDiff) Fields() []string {
	fields := make([]string, 0, len(d.Changed))
	for f := range d.Changed {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// MergeConfig applies a partial JSON patch over base and returns the merged
// copy plus a diff of what changed. base is never mutated. Fields omitted
// from the patch keep their current values; patching an immutable field to a
// new value fails with an ImmutableFieldError.
func MergeConfig(base *Config, patch []byte) (*Config, *ConfigDiff, error) {
	var patchKeys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &patchKeys); err != nil {
		return nil, nil, fmt.Errorf("invalid config patch: %w", err)
	}

	baseMap, err := toMap(base)
	if err != nil {
		return nil, nil, err
	}

	for _, field := range immutableFields {
		raw, present := patchKeys[field]
		if !present {
			continue
		}
		var patched interface{}
		if err := json.Unmarshal(raw, &patched); err != nil {
			return nil, nil, fmt.Errorf("invalid config patch: %w", err)
		}
		// Re-sending the current value is a no-op, not a violation.
		if !reflect.DeepEqual(patched, baseMap[field]) {
			return nil, nil, &ImmutableFieldError{Field: field}
		}
	}

	merged := base.Clone()
	if err := json.Unmarshal(patch, merged); err != nil {
		return nil, nil, fmt.Errorf("invalid config patch: %w", err)
	}

	if err := merged.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	diff, err := diffConfigs(base, merged)
	if err != nil {
		return nil, nil, err
	}

	return merged, diff, nil
}

// diffConfigs compares two configs field by field at the top level. Nested
// structs are compared wholesale, which is enough for change events.
func diffConfigs(before, after *Config) (*ConfigDiff, error) {
	beforeMap, err := toMap(before)
	if err != nil {
		return nil, err
	}
	afterMap, err := toMap(after)
	if err != nil {
		return nil, err
	}

	diff := NewConfigDiff()
	for key, afterVal := range afterMap {
		beforeVal, existed := beforeMap[key]
		if !existed || !reflect.DeepEqual(beforeVal, afterVal) {
			diff.Changed[key] = FieldChange{Old: beforeVal, New: afterVal}
		}
	}
	for key, beforeVal := range beforeMap {
		if _, still := afterMap[key]; !still {
			diff.Changed[key] = FieldChange{Old: beforeVal, New: nil}
		}
	}
	return diff, nil
}

func toMap(cfg *Config) (map[string]interface{}, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to remap config: %w", err)
	}
	return m, nil
}
