package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loom/internal/reconciler"
	"github.com/roach88/loom/internal/trace"
)

// Scenario defines a reconciler test scenario: a sequence of renders and
// events against one container, with assertions on the host ops they cause
// and on the final host tree.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Budget is the number of units of work each idle callback may perform.
	// Zero means unlimited: every render completes in one callback.
	Budget int `yaml:"budget,omitempty"`

	// Components defines template components by name, in tree-file syntax.
	Components map[string]yaml.Node `yaml:"components,omitempty"`

	// Steps run in order against one host and one reconciler.
	Steps []Step `yaml:"steps"`

	// Assertions validate the ops and final tree.
	// Supported types: op_count, no_ops, op_order, final_tree, event_count
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is the id the run is recorded under when a store is
	// attached. Defaults to "scenario-" followed by the scenario name, so
	// scenarios sharing a store never share a session.
	SessionID string `yaml:"session_id,omitempty"`

	// file is the path the scenario was loaded from, for error positions.
	file string
}

// Step is one action. Exactly one of Render, Clear and Dispatch is set.
type Step struct {
	// Render is an element tree to render into the container.
	Render *yaml.Node `yaml:"render,omitempty"`

	// Clear renders an empty tree.
	Clear bool `yaml:"clear,omitempty"`

	// Dispatch delivers an event to a host node.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// Fail arms a host failure before the step runs.
	Fail *FailStep `yaml:"fail,omitempty"`

	// ExpectError is the error code the step must end with
	// (COMPONENT_FAILED, HOST_FAILED, COMMIT_FAILED). Empty means the step
	// must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// DispatchStep names a host node by label ("button#3") or tag and the
// event to deliver to it.
type DispatchStep struct {
	Node  string `yaml:"node"`
	Event string `yaml:"event"`
}

// FailStep makes the Nth upcoming host call of kind Op fail.
type FailStep struct {
	Op  string `yaml:"op"`
	Nth int    `yaml:"nth,omitempty"`
}

// Step kinds.
const (
	StepRender   = "render"
	StepClear    = "clear"
	StepDispatch = "dispatch"
)

// Kind returns which action the step performs.
func (s Step) Kind() string {
	switch {
	case s.Render != nil:
		return StepRender
	case s.Clear:
		return StepClear
	case s.Dispatch != nil:
		return StepDispatch
	default:
		return ""
	}
}

// Assertion validates the ops or the final tree.
type Assertion struct {
	// Type specifies the assertion type:
	// - "op_count": ops of Kind occur exactly Count times
	// - "no_ops": no host op was issued
	// - "op_order": Ops occur in this order, not necessarily adjacent
	// - "final_tree": the final host tree dumps to Tree
	// - "event_count": listener Listener received Count events
	Type string `yaml:"type"`

	// Step restricts op assertions to one step. Nil means the whole run.
	Step *int `yaml:"step,omitempty"`

	Kind     string   `yaml:"kind,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Ops      []string `yaml:"ops,omitempty"`
	Tree     string   `yaml:"tree,omitempty"`
	Listener string   `yaml:"listener,omitempty"`
}

// Assertion type constants.
const (
	AssertOpCount    = "op_count"
	AssertNoOps      = "no_ops"
	AssertOpOrder    = "op_order"
	AssertFinalTree  = "final_tree"
	AssertEventCount = "event_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, path)
}

// ParseScenario parses scenario YAML. file is used in error messages.
func ParseScenario(data []byte, file string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.file = file

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the scenario files under dir in lexical order.
// A path to a single file is returned as is.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(p) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// componentNames returns the template names in sorted order.
func (s *Scenario) componentNames() []string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Budget < 0 {
		return fmt.Errorf("budget must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Render != nil {
		set++
	}
	if s.Clear {
		set++
	}
	if s.Dispatch != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of render, clear, dispatch is required", index)
	}

	if s.Dispatch != nil && (s.Dispatch.Node == "" || s.Dispatch.Event == "") {
		return fmt.Errorf("steps[%d].dispatch: node and event are required", index)
	}
	if s.Fail != nil {
		if _, err := trace.ParseKind(s.Fail.Op); err != nil {
			return fmt.Errorf("steps[%d].fail: %w", index, err)
		}
		if s.Fail.Nth < 0 {
			return fmt.Errorf("steps[%d].fail: nth must be non-negative", index)
		}
	}

	switch reconciler.ErrorCode(s.ExpectError) {
	case "", reconciler.ErrCodeComponentFailed, reconciler.ErrCodeHostFailed, reconciler.ErrCodeCommitFailed:
	default:
		return fmt.Errorf("steps[%d]: unknown error code %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Step != nil && (*a.Step < 0 || *a.Step >= steps) {
		return fmt.Errorf("assertions[%d]: step %d out of range", index, *a.Step)
	}

	switch a.Type {
	case AssertOpCount:
		if _, err := trace.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for op_count", index)
		}
	case AssertNoOps:
	case AssertOpOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for op_order", index)
		}
	case AssertFinalTree:
		if strings.TrimSpace(a.Tree) == "" {
			return fmt.Errorf("assertions[%d]: tree is required for final_tree", index)
		}
	case AssertEventCount:
		if a.Listener == "" {
			return fmt.Errorf("assertions[%d]: listener is required for event_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
