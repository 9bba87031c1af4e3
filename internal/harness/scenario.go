package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/retailkit/internal/pipeline"
)

// Scenario is one configured run plus the assertions it must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional CUE file unified with the defaults.
	// Relative paths are resolved against the scenario file's directory.
	Config string `yaml:"config,omitempty"`

	// Seed overrides generator.seed when set.
	Seed *uint64 `yaml:"seed,omitempty"`

	// Recipes selects recipes to run. Empty means all.
	Recipes []string `yaml:"recipes,omitempty"`

	// Assertions validate the summary and the warehouse snapshot.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one property of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "summary_value": value at Path equals Equals
	// - "summary_count": array at Path has Count elements
	// - "summary_contains": array at Path has an object matching Expect
	// - "final_state": exactly one row of Table matching Where, checked against Expect
	// - "digest": summary digest equals Equals
	Type string `yaml:"type"`

	// Path addresses the canonical summary (summary_* types).
	Path string `yaml:"path,omitempty"`

	// Equals is the expected scalar (summary_value, digest).
	Equals any `yaml:"equals,omitempty"`

	// Count is the expected array length (summary_count).
	Count int `yaml:"count,omitempty"`

	// Table is the warehouse table (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies row filters (final_state).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state, summary_contains).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertSummaryValue    = "summary_value"
	AssertSummaryCount    = "summary_count"
	AssertSummaryContains = "summary_contains"
	AssertFinalState      = "final_state"
	AssertDigest          = "digest"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
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

	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	if _, err := pipeline.ParseRecipes(s.Recipes); err != nil {
		return err
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSummaryValue:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for summary_value", index)
		}
	case AssertSummaryCount:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for summary_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for summary_count", index)
		}
	case AssertSummaryContains:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for summary_contains", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for summary_contains", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertDigest:
		if s, ok := a.Equals.(string); !ok || len(s) != 64 {
			return fmt.Errorf("assertions[%d]: equals must be a 64-character hex digest", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// needsWarehouse reports whether any assertion queries the snapshot.
func (s *Scenario) needsWarehouse() bool {
	for _, a := range s.Assertions {
		if a.Type == AssertFinalState {
			return true
		}
	}
	return false
}
