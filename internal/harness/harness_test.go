package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/trace"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src), "test.yaml")
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_Minimal(t *testing.T) {
	scenario := mustParse(t, `
name: minimal
description: "one paragraph"
steps:
  - render: { tag: p, children: ["hello"] }
assertions:
  - type: op_count
    kind: create
    count: 2
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	require.Len(t, result.Steps, 1)
	step := result.Steps[0]
	assert.Equal(t, StepRender, step.Kind)
	assert.Equal(t, 1, step.Callbacks)
	assert.Equal(t, int64(1), step.Generation)
	require.Len(t, step.Commits, 1)
	assert.Equal(t, step.Ops, step.Commits[0].Ops)
	assert.Equal(t, 3, step.Commits[0].Fibers) // root, p, text
	assert.Equal(t, "root#1\n  p#2\n    #text#3 \"hello\"\n", result.FinalTree)
}

func TestRun_BudgetSetsCallbacks(t *testing.T) {
	tests := []struct {
		budget    int
		callbacks int
	}{
		{0, 1},
		{1, 4}, // root, ul, li, li
		{2, 2},
		{3, 2},
		{4, 1},
	}

	for _, tt := range tests {
		scenario := mustParse(t, `
name: budget
description: "list"
steps:
  - render: { tag: ul, children: [{ tag: li }, { tag: li }] }
assertions:
  - type: op_count
    kind: append
    count: 3
`)
		scenario.Budget = tt.budget

		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, result.Errors)
		assert.Equal(t, tt.callbacks, result.Steps[0].Callbacks, "budget %d", tt.budget)
	}
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := mustParse(t, `
name: unexpected
description: "a failure nobody asked for"
steps:
  - fail: { op: create }
    render: { tag: p }
assertions:
  - type: no_ops
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0 (render): unexpected error: HOST_FAILED")
	assert.Equal(t, "HOST_FAILED", result.Steps[0].ErrorCode)
}

func TestRun_MissingExpectedError(t *testing.T) {
	scenario := mustParse(t, `
name: missing
description: "expects a failure that never comes"
steps:
  - render: { tag: p }
    expect_error: COMMIT_FAILED
assertions:
  - type: op_count
    kind: create
    count: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error COMMIT_FAILED, step succeeded")
}

func TestRun_DispatchWithoutListener(t *testing.T) {
	scenario := mustParse(t, `
name: dispatch
description: "nothing listens"
steps:
  - render: { tag: p }
  - dispatch: { node: p, event: click }
  - dispatch: { node: "span#9", event: click }
assertions:
  - type: no_ops
    step: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "nothing listens for click on p#2")
	assert.Contains(t, result.Errors[1], `no node "span#9"`)
}

func TestRun_FailedAssertion(t *testing.T) {
	scenario := mustParse(t, `
name: wrong
description: "wrong expectations"
steps:
  - render: { tag: p }
assertions:
  - type: no_ops
  - type: final_tree
    tree: "root#1"
`)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: no_ops")
	assert.Contains(t, result.Errors[1], "Assertion failed: final_tree")
}

func TestRun_UndecodableTree(t *testing.T) {
	scenario := mustParse(t, `
name: bad_tree
description: "float prop"
steps:
  - render: { tag: p, props: { width: 1.5 } }
assertions:
  - type: no_ops
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0")
	assert.Contains(t, err.Error(), "floats are not allowed")
}

func TestRun_UnknownListenerIsCreated(t *testing.T) {
	scenario := mustParse(t, `
name: auto
description: "listeners are created on first use"
steps:
  - render: { tag: a, props: { onClick: "@go" } }
  - dispatch: { node: a, event: click }
assertions:
  - type: event_count
    listener: go
    count: 1
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, map[string]int{"go": 1}, result.Events)
}

func TestRun_IsolatedPerRun(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/mount.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, FormatTrace("mount", first), FormatTrace("mount", second))
}

func TestRun_WithStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	scenario, err := LoadScenario("testdata/scenarios/failures.yaml")
	require.NoError(t, err)
	scenario.SessionID = "sess-failures"

	result, err := Run(scenario, WithStore(st))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)
	assert.Equal(t, "sess-failures", result.SessionID)

	log, err := st.ReplaySession(context.Background(), "sess-failures")
	require.NoError(t, err)
	assert.Equal(t, "failures", log.Session.Name)

	// Only the two successful commits are stored.
	require.Len(t, log.Commits, 2)
	assert.Equal(t, int64(3), log.Commits[0].Commit.Generation)
	assert.Equal(t, int64(4), log.Commits[1].Commit.Generation)
	assert.Equal(t, "remove root#1 div#4\n", trace.Format(log.Commits[1].Ops))

	// Recording again is a no-op.
	_, err = Run(scenario, WithStore(st))
	require.NoError(t, err)
	sessions, err := st.ReadSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].Commits)
}

func TestRun_WithStoreDefaultSessionPerScenario(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	for _, name := range []string{"mount", "replace"} {
		scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
		require.NoError(t, err)

		result, err := Run(scenario, WithStore(st))
		require.NoError(t, err)
		assert.Equal(t, "scenario-"+name, result.SessionID)
	}

	sessions, err := st.ReadSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "mount", sessions[0].Name)
	assert.Equal(t, "replace", sessions[1].Name)
}
