package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/loom/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Ops      []trace.Op // Ops the assertion looked at
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Ops) > 0 {
		fmt.Fprintf(&buf, "\nOps:\n")
		for i, op := range e.Ops {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, op)
		}
	}
	return buf.String()
}

// scope describes which ops an assertion covers, for messages.
func scope(step *int) string {
	if step == nil {
		return "run"
	}
	return fmt.Sprintf("step %d", *step)
}

// assertOpCount checks that ops of the given kind occur exactly Count times.
func assertOpCount(ops []trace.Op, a Assertion) error {
	n := trace.Count(ops, trace.Kind(a.Kind))
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOpCount,
		Expected: fmt.Sprintf("%d %s ops in %s", a.Count, a.Kind, scope(a.Step)),
		Actual:   fmt.Sprintf("%d %s ops", n, a.Kind),
		Ops:      ops,
	}
}

// assertNoOps checks that no host op was issued.
func assertNoOps(ops []trace.Op, a Assertion) error {
	if len(ops) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoOps,
		Expected: fmt.Sprintf("no ops in %s", scope(a.Step)),
		Actual:   fmt.Sprintf("%d ops", len(ops)),
		Ops:      ops,
	}
}

// assertOpOrder checks that the expected op summaries appear in order.
// Ops don't need to be consecutive (intervening ops are allowed).
func assertOpOrder(ops []trace.Op, a Assertion) error {
	next := 0
	for _, op := range ops {
		if next < len(a.Ops) && op.String() == a.Ops[next] {
			next++
		}
	}
	if next == len(a.Ops) {
		return nil
	}

	actual := fmt.Sprintf("missing %q", a.Ops[next])
	if next > 0 {
		actual += fmt.Sprintf(" after %q", a.Ops[next-1])
	}
	return &AssertionError{
		Type:     AssertOpOrder,
		Expected: fmt.Sprintf("ops in order: %v", a.Ops),
		Actual:   actual,
		Ops:      ops,
	}
}

// assertFinalTree compares the final tree dump. Leading and trailing blank
// lines are ignored so YAML block scalars can be used as written.
func assertFinalTree(tree string, a Assertion) error {
	want := strings.Trim(a.Tree, "\n")
	got := strings.Trim(tree, "\n")
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalTree,
		Expected: "\n" + indent(want),
		Actual:   "\n" + indent(got),
	}
}

// assertEventCount checks how many events a listener received.
func assertEventCount(events map[string]int, a Assertion) error {
	n := events[a.Listener]
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("@%s called %d times", a.Listener, a.Count),
		Actual:   fmt.Sprintf("called %d times", n),
	}
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		ops, ok := result.stepOps(assertion.Step)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: step %d out of range", i, *assertion.Step))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertOpCount:
			err = assertOpCount(ops, assertion)
		case AssertNoOps:
			err = assertNoOps(ops, assertion)
		case AssertOpOrder:
			err = assertOpOrder(ops, assertion)
		case AssertFinalTree:
			err = assertFinalTree(result.FinalTree, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Events, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
