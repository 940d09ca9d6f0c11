// Package harness runs reconciler scenarios and checks the host ops they
// produce.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: toggle_label
//	description: "Changing a prop issues exactly one set"
//	budget: 2
//	components:
//	  Label:
//	    tag: span
//	    props: { onClick: "@toggle" }
//	    children: ["$text"]
//	steps:
//	  - render:
//	      tag: Label
//	      props: { text: "on" }
//	  - dispatch: { node: span, event: click }
//	  - render:
//	      tag: Label
//	      props: { text: "off" }
//	  - fail: { op: remove }
//	    clear: true
//	    expect_error: COMMIT_FAILED
//	assertions:
//	  - type: op_count
//	    step: 2
//	    kind: set
//	    count: 1
//	  - type: event_count
//	    listener: toggle
//	    count: 1
//
// Render trees use the markup tree syntax; components are template
// components; "@name" listeners are created on first use and count the
// events they receive.
//
// # Assertion Types
//
//   - op_count: ops of a kind occur exactly N times
//   - no_ops: nothing was issued
//   - op_order: op summaries appear in order, not necessarily adjacent
//   - final_tree: the host tree dump after the last step
//   - event_count: a listener received N events
//
// Op assertions cover one step when step is set and the whole run otherwise.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh memory host and reconciler. The idle
// loop reads a step clock that advances 1ms per read, and each callback gets
// a frame of budget+1 steps, so a budget of n performs exactly n units of
// work per callback. Node labels, generations, callback counts and ops are
// therefore identical across runs, which makes golden files stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/mount.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
