package harness

import (
	"errors"

	"github.com/roach88/loom/internal/reconciler"
	"github.com/roach88/loom/internal/trace"
)

// CommitRecord is one successful commit and the host ops issued since the
// commit before it.
type CommitRecord struct {
	Generation int64      `json:"generation"`
	Fibers     int        `json:"fibers"`
	Ops        []trace.Op `json:"ops"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`

	// Ops are every host op issued while the step ran, including ops of a
	// commit that was abandoned part way.
	Ops []trace.Op `json:"ops"`

	Commits []CommitRecord `json:"commits,omitempty"`

	// Callbacks is the number of idle callbacks the step took.
	Callbacks int `json:"callbacks"`

	// Generation is the committed generation after the step.
	Generation int64 `json:"generation"`

	// ErrorCode is the code of the error the step ended with, if any.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Errors contains failed expectations and assertions.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalTree is the host.Dump of the container after the last step.
	FinalTree string `json:"final_tree"`

	// Events counts the events each listener received, by listener name.
	Events map[string]int `json:"events,omitempty"`

	// SessionID is set when the run was recorded to a store.
	SessionID string `json:"session_id,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
		Events: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Ops returns every op of the run in order.
func (r *Result) Ops() []trace.Op {
	var out []trace.Op
	for _, s := range r.Steps {
		out = append(out, s.Ops...)
	}
	return out
}

// stepOps returns the ops of step i, or of the whole run when i is nil.
func (r *Result) stepOps(i *int) ([]trace.Op, bool) {
	if i == nil {
		return r.Ops(), true
	}
	if *i < 0 || *i >= len(r.Steps) {
		return nil, false
	}
	return r.Steps[*i].Ops, true
}

// errorCode extracts the reconciler error code from err.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var re *reconciler.RenderError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "ERROR"
}
