package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/recordsim/internal/metadata"
	"github.com/roach88/recordsim/internal/plugin"
)

// Scenario defines a data-driven test against a fresh service.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Schemas lists CUE files with entity metadata.
	// Paths are relative to the scenario file location.
	Schemas []string `yaml:"schemas,omitempty"`

	// Metadata declares entities inline, after Schemas are applied.
	Metadata []metadata.EntityMetadata `yaml:"metadata,omitempty"`

	Integrity metadata.IntegrityOptions `yaml:"integrity,omitempty"`

	// MaxDepth overrides the plugin recursion ceiling. Zero or less
	// disables the ceiling.
	MaxDepth *int `yaml:"max_depth,omitempty"`

	// Initialization is "none" (default) or "per_entity".
	Initialization string `yaml:"initialization,omitempty"`

	// Seed records are loaded before the flow without running plugins.
	Seed []SeedRecord `yaml:"seed,omitempty"`

	// Plugins registers declarative steps.
	Plugins []PluginStep `yaml:"plugins,omitempty"`

	// Flow contains the requests to execute, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedRecord is a record loaded during initialization.
type SeedRecord struct {
	Entity string `yaml:"entity"`

	// ID is optional; when set it can be referenced as ${Save}.
	ID string `yaml:"id,omitempty"`

	// Save names a variable bound to the record id.
	Save string `yaml:"save,omitempty"`

	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// PluginStep is a step whose handler is one of a fixed set of actions:
//   - create: create Record through the plugin service
//   - set_target: set Attributes on the Target record
//   - fail: return Error
//   - set_shared: store Value under Key in the shared variables
type PluginStep struct {
	Name      string   `yaml:"name"`
	Stage     string   `yaml:"stage"`
	Message   string   `yaml:"message"`
	Entity    string   `yaml:"entity,omitempty"`
	Filtering []string `yaml:"filtering,omitempty"`
	Action    string   `yaml:"action"`

	// Record is the record created by the create action.
	Record *RecordSpec `yaml:"record,omitempty"`

	// Attributes are written by set_target.
	Attributes map[string]any `yaml:"attributes,omitempty"`

	// Error is the message returned by fail.
	Error string `yaml:"error,omitempty"`

	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// RecordSpec describes a record in YAML.
type RecordSpec struct {
	Entity     string         `yaml:"entity"`
	ID         string         `yaml:"id,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// FlowStep executes one request.
type FlowStep struct {
	// Request is the message name (e.g. "Create", "CloseIncident").
	Request string `yaml:"request"`

	// Parameters are converted as described in the package documentation.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Save binds the response id to a variable usable as ${name}.
	Save string `yaml:"save,omitempty"`

	// Expect validates the response. Without it the request must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a request.
type ExpectClause struct {
	// Fault is the expected fault code. Empty means success.
	Fault string `yaml:"fault,omitempty"`

	// Results is a subset match against the plain form of the response.
	Results map[string]any `yaml:"results,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Message, Entity, Depth and Outcome filter trace events
	// (trace_contains, trace_count).
	Message string `yaml:"message,omitempty"`
	Entity  string `yaml:"entity,omitempty"`
	Depth   int    `yaml:"depth,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// Messages is the expected order (trace_order).
	Messages []string `yaml:"messages,omitempty"`

	// Count is the expected number of matches (trace_count, record_count).
	Count int `yaml:"count,omitempty"`

	// Where selects one record by attribute equality (final_state,
	// record_count).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected attribute values (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRecordCount   = "record_count"
)

// Plugin step actions.
const (
	ActionCreate    = "create"
	ActionSetTarget = "set_target"
	ActionFail      = "fail"
	ActionSetShared = "set_shared"
)

// LoadScenario reads and parses a scenario YAML file. Schema paths are
// resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i, p := range s.Schemas {
		if !filepath.IsAbs(p) {
			s.Schemas[i] = filepath.Join(base, p)
		}
	}
	return s, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	switch s.Initialization {
	case "", "none", "per_entity":
	default:
		return fmt.Errorf("initialization must be none or per_entity, got %q", s.Initialization)
	}

	var errs []error
	for i, rec := range s.Seed {
		if rec.Entity == "" {
			errs = append(errs, fmt.Errorf("seed[%d]: entity is required", i))
		}
	}
	for i, p := range s.Plugins {
		if err := validatePlugin(p); err != nil {
			errs = append(errs, fmt.Errorf("plugins[%d]: %w", i, err))
		}
	}
	for i, step := range s.Flow {
		if step.Request == "" {
			errs = append(errs, fmt.Errorf("flow[%d]: request is required", i))
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func validatePlugin(p PluginStep) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := plugin.ParseStage(p.Stage); err != nil {
		return err
	}
	if p.Message == "" {
		return fmt.Errorf("message is required")
	}
	switch p.Action {
	case ActionCreate:
		if p.Record == nil || p.Record.Entity == "" {
			return fmt.Errorf("create requires record.entity")
		}
	case ActionSetTarget:
		if len(p.Attributes) == 0 {
			return fmt.Errorf("set_target requires attributes")
		}
	case ActionFail:
		if p.Error == "" {
			return fmt.Errorf("fail requires error")
		}
	case ActionSetShared:
		if p.Key == "" {
			return fmt.Errorf("set_shared requires key")
		}
	default:
		return fmt.Errorf("unknown action %q", p.Action)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Message == "" {
			return fmt.Errorf("trace_contains requires message")
		}
	case AssertTraceOrder:
		if len(a.Messages) < 2 {
			return fmt.Errorf("trace_order requires at least two messages")
		}
	case AssertTraceCount:
		if a.Message == "" {
			return fmt.Errorf("trace_count requires message")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count requires count >= 0")
		}
	case AssertFinalState:
		if a.Entity == "" || len(a.Where) == 0 || len(a.Expect) == 0 {
			return fmt.Errorf("final_state requires entity, where and expect")
		}
	case AssertRecordCount:
		if a.Entity == "" {
			return fmt.Errorf("record_count requires entity")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
