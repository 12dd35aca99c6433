package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shopsync/internal/model"
	"github.com/roach88/shopsync/internal/remote"
)

// Scenario defines one reconciliation scenario: two seeded deployments, a
// sequence of runs and the assertions checked afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the RFC 3339 wall clock of every run. Defaults to DefaultNow.
	Now string `yaml:"now,omitempty"`

	Source Deployment `yaml:"source"`
	Target Deployment `yaml:"target"`

	// Failures are queued on the deployments before the first run.
	Failures []Failure `yaml:"failures,omitempty"`

	// Runs are executed in order against the same deployments.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the target writes and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Deployment is the seed state of one in-memory deployment.
type Deployment struct {
	// PinLimit caps pinned definitions per owner type. Zero is unlimited.
	PinLimit    int                `yaml:"pin_limit,omitempty"`
	PageSize    int                `yaml:"page_size,omitempty"`
	Definitions []model.Definition `yaml:"definitions,omitempty"`
	Entities    []model.Entity     `yaml:"entities,omitempty"`
	Files       []remote.File      `yaml:"files,omitempty"`
}

// Failure injects one error into a deployment call.
type Failure struct {
	// Side is "target" (default) or "source".
	Side string `yaml:"side,omitempty"`

	// Op is the call name, e.g. create_definition or fetch_entities.
	Op string `yaml:"op"`

	// Key selects the call by natural key. Empty matches any call of Op.
	Key string `yaml:"key,omitempty"`

	// Code turns the failure into an in-band rejection with this code.
	// Without a code the failure is a transport error.
	Code    string `yaml:"code,omitempty"`
	Message string `yaml:"message"`
}

// RunStep is one sync or delete invocation.
type RunStep struct {
	Command       string   `yaml:"command"`
	Kinds         []string `yaml:"kinds"`
	Definitions   bool     `yaml:"definitions,omitempty"`
	Data          bool     `yaml:"data,omitempty"`
	Key           string   `yaml:"key,omitempty"`
	Handle        string   `yaml:"handle,omitempty"`
	Namespace     string   `yaml:"namespace,omitempty"`
	Types         []string `yaml:"types,omitempty"`
	ID            string   `yaml:"id,omitempty"`
	Limit         int      `yaml:"limit,omitempty"`
	DryRun        bool     `yaml:"dry_run,omitempty"`
	ForceRecreate bool     `yaml:"force_recreate,omitempty"`
	SkipUnchanged bool     `yaml:"skip_unchanged,omitempty"`

	// Expect checks the run's summed counters (subset match).
	Expect map[string]int `yaml:"expect,omitempty"`

	// Error is a substring of the error the run must return. A run with
	// an expected error has no counters.
	Error string `yaml:"error,omitempty"`
}

// Commands.
const (
	CommandSync   = "sync"
	CommandDelete = "delete"
)

// Sides.
const (
	SideSource = "source"
	SideTarget = "target"
)

// Assertion validates the trace or the final target state.
type Assertion struct {
	// Type specifies the assertion type, see the Assert constants.
	Type string `yaml:"type"`

	// Op and Key select writes (write_contains, write_count).
	Op  string `yaml:"op,omitempty"`
	Key string `yaml:"key,omitempty"`

	// Values must all appear in the matched write (write_contains).
	Values []string `yaml:"values,omitempty"`

	// Writes is the expected order (write_order).
	Writes []WriteRef `yaml:"writes,omitempty"`

	// Count is the expected number of matches (write_count, journal).
	Count int `yaml:"count,omitempty"`

	// Kind is an entity kind (target_entity) or a definition kind
	// (target_definition).
	Kind string `yaml:"kind,omitempty"`

	// Fields are expected field values (target_entity). An empty value
	// asserts the field is absent.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Absent asserts the entity or definition does not exist.
	Absent bool `yaml:"absent,omitempty"`

	// Pinned asserts the pin state of a definition.
	Pinned *bool `yaml:"pinned,omitempty"`

	// Outcome selects journaled mutation attempts (journal).
	Outcome string `yaml:"outcome,omitempty"`
}

// WriteRef names one target write.
type WriteRef struct {
	Op  string `yaml:"op"`
	Key string `yaml:"key"`
}

func (w WriteRef) String() string {
	return w.Op + " " + w.Key
}

// Assertion type constants.
const (
	AssertWriteContains    = "write_contains"
	AssertWriteOrder       = "write_order"
	AssertWriteCount       = "write_count"
	AssertTargetEntity     = "target_entity"
	AssertTargetDefinition = "target_definition"
	AssertJournal          = "journal"
)

// DefaultNow is the wall clock of scenarios that do not set one.
var DefaultNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// expectKeys lists the counters a run expectation may name.
var expectKeys = map[string]bool{
	"created": true, "updated": true, "skipped": true, "failed": true, "deleted": true,
	"references_processed": true, "references_transformed": true, "references_blanked": true,
	"reference_errors": true, "reference_warnings": true,
}

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

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) now() (time.Time, error) {
	if s.Now == "" {
		return DefaultNow, nil
	}
	return time.Parse(time.RFC3339, s.Now)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.now(); err != nil {
		return fmt.Errorf("now: %w", err)
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, f := range s.Failures {
		if f.Side != "" && f.Side != SideSource && f.Side != SideTarget {
			return fmt.Errorf("failures[%d]: unknown side %q", i, f.Side)
		}
		if f.Op == "" {
			return fmt.Errorf("failures[%d]: op is required", i)
		}
		if f.Message == "" {
			return fmt.Errorf("failures[%d]: message is required", i)
		}
	}

	for i, r := range s.Runs {
		if r.Command != CommandSync && r.Command != CommandDelete {
			return fmt.Errorf("runs[%d]: unknown command %q", i, r.Command)
		}
		if len(r.Kinds) == 0 {
			return fmt.Errorf("runs[%d]: kinds list is required", i)
		}
		for k := range r.Expect {
			if !expectKeys[k] {
				return fmt.Errorf("runs[%d].expect: unknown counter %q", i, k)
			}
		}
		if r.Error != "" && len(r.Expect) > 0 {
			return fmt.Errorf("runs[%d]: expect and error are exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
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
	case AssertWriteContains:
		if a.Op == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: op and key are required for write_contains", index)
		}
	case AssertWriteOrder:
		if len(a.Writes) < 2 {
			return fmt.Errorf("assertions[%d]: at least two writes are required for write_order", index)
		}
	case AssertWriteCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for write_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for write_count", index)
		}
	case AssertTargetEntity:
		if _, ok := model.OwnerKindFor(model.EntityKind(a.Kind)); !ok {
			return fmt.Errorf("assertions[%d]: unknown entity kind %q", index, a.Kind)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for target_entity", index)
		}
	case AssertTargetDefinition:
		if k := model.DefinitionKind(a.Kind); k != model.KindTypeDefinition && k != model.KindFieldDefinition {
			return fmt.Errorf("assertions[%d]: unknown definition kind %q", index, a.Kind)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for target_definition", index)
		}
	case AssertJournal:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for journal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
