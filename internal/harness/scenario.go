package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/botrank/internal/checkpoint"
	"github.com/roach88/botrank/internal/shard"
	"github.com/roach88/botrank/internal/store"
)

// Scenario defines a store scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the initial clock reading, in leaf layout
	// ("2006-01-02 15:04:05", UTC).
	Start string `yaml:"start"`

	// Boundary is the checkpoint boundary policy. Defaults to "exclusive".
	Boundary string `yaml:"boundary,omitempty"`

	// RangeMode is the range scan mode. Defaults to "independent".
	RangeMode string `yaml:"range_mode,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	Entity   string `yaml:"entity,omitempty"`
	Category string `yaml:"category,omitempty"`

	// At is a timestamp for append and count: "now" (the default),
	// "epoch", or a leaf-layout time.
	At string `yaml:"at,omitempty"`

	// Value is the record value for append. Defaults to 1.
	Value *int64 `yaml:"value,omitempty"`

	// Direction is the range filter for count.
	Direction string `yaml:"direction,omitempty"`

	// By is the clock advance for advance, in time.ParseDuration syntax.
	By string `yaml:"by,omitempty"`

	// Expect validates the step outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Value is the expected value (latest, latest_record, count) or
	// checkpoint total (batch, update).
	Value *int64 `yaml:"value,omitempty"`

	// Absent expects a read to find nothing.
	Absent bool `yaml:"absent,omitempty"`

	// Time is the expected leaf-layout timestamp of latest_time.
	Time string `yaml:"time,omitempty"`

	// Error expects the step to fail with a message containing it.
	Error string `yaml:"error,omitempty"`

	// Order is the expected entity order of rank.
	Order []string `yaml:"order,omitempty"`
}

// Step operations.
const (
	OpAppend              = "append"
	OpBatch               = "batch"
	OpUpdate              = "update"
	OpBatchAllCategories  = "batch_all_categories"
	OpBatchAllEntities    = "batch_all_entities"
	OpUpdateAllCategories = "update_all_categories"
	OpUpdateAllEntities   = "update_all_entities"
	OpLatest              = "latest"
	OpLatestTime          = "latest_time"
	OpLatestRecord        = "latest_record"
	OpCount               = "count"
	OpAdvance             = "advance"
	OpRank                = "rank"
)

// Assertion validates the trace or the final store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_checkpoint": latest checkpoint of entity/category equals value
	// - "record_total": sum of all records of entity/category equals value
	// - "trace_count": op appears exactly count times in the trace
	// - "layout_contains": path (relative to the root) is an entry
	Type string `yaml:"type"`

	Entity   string `yaml:"entity,omitempty"`
	Category string `yaml:"category,omitempty"`
	Value    int64  `yaml:"value,omitempty"`
	Op       string `yaml:"op,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	Path     string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalCheckpoint = "final_checkpoint"
	AssertRecordTotal     = "record_total"
	AssertTraceCount      = "trace_count"
	AssertLayoutContains  = "layout_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := parseLeafTime(s.Start); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if s.Boundary != "" {
		if _, err := checkpoint.ParseBoundary(s.Boundary); err != nil {
			return err
		}
	}

	if s.RangeMode != "" {
		if _, err := store.ParseRangeMode(s.RangeMode); err != nil {
			return err
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, st *Step) error {
	needAddress := func() error {
		if st.Entity == "" || st.Category == "" {
			return fmt.Errorf("steps[%d]: entity and category are required for %s", index, st.Op)
		}
		return nil
	}

	switch st.Op {
	case OpAppend, OpBatch, OpUpdate, OpLatest, OpLatestTime, OpLatestRecord:
		if err := needAddress(); err != nil {
			return err
		}
	case OpCount:
		if err := needAddress(); err != nil {
			return err
		}
		if _, err := store.ParseDirection(st.Direction); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case OpBatchAllCategories, OpUpdateAllCategories:
		if st.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required for %s", index, st.Op)
		}
	case OpBatchAllEntities, OpUpdateAllEntities, OpRank:
	case OpAdvance:
		d, err := time.ParseDuration(st.By)
		if err != nil {
			return fmt.Errorf("steps[%d]: by: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: by must not be negative", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.At != "" {
		if _, err := resolveAt(st.At, time.Time{}); err != nil {
			return fmt.Errorf("steps[%d]: at: %w", index, err)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertFinalCheckpoint, AssertRecordTotal:
		if a.Entity == "" || a.Category == "" {
			return fmt.Errorf("assertions[%d]: entity and category are required for %s", index, a.Type)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertLayoutContains:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for layout_contains", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func parseLeafTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(shard.LeafLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("want %q layout: %w", shard.LeafLayout, err)
	}
	return t, nil
}

// resolveAt maps a step timestamp to a time, given the clock reading now.
func resolveAt(at string, now time.Time) (time.Time, error) {
	switch at {
	case "", "now":
		return now, nil
	case "epoch":
		return shard.Epoch, nil
	}
	return parseLeafTime(at)
}
