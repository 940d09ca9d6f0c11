package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/loom/internal/trace"
)

// FormatTrace renders a result as the golden text format:
//
//	scenario: mount
//	step 0 render: generation 1, 1 callbacks
//	  create div#2
//	  append root#1 div#2
//	step 1 clear: generation 1, 1 callbacks, error HOST_FAILED
//	final:
//	  root#1
//	    div#2
//
// Digests and timing never appear, so the file can be written by hand.
func FormatTrace(name string, result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, s := range result.Steps {
		fmt.Fprintf(&b, "step %d %s: generation %d, %d callbacks", s.Index, s.Kind, s.Generation, s.Callbacks)
		if s.ErrorCode != "" {
			fmt.Fprintf(&b, ", error %s", s.ErrorCode)
		}
		b.WriteByte('\n')
		for _, line := range strings.SplitAfter(trace.Format(s.Ops), "\n") {
			if line != "" {
				b.WriteString("  " + line)
			}
		}
	}
	b.WriteString("final:\n")
	for _, line := range strings.SplitAfter(result.FinalTree, "\n") {
		if line != "" {
			b.WriteString("  " + line)
		}
	}
	return b.String()
}

// RunWithGolden executes a scenario and compares its trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(FormatTrace(scenarioName, result)))
}
