package reconciler

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes render errors.
type ErrorCode string

const (
	// ErrCodeComponentFailed indicates a component returned an error or
	// panicked during the render phase. The cursor stays on the failing
	// fiber; a fresh Render is required to recover.
	ErrCodeComponentFailed ErrorCode = "COMPONENT_FAILED"

	// ErrCodeHostFailed indicates node materialization failed during the
	// render phase. Recovery is the same as for component failures.
	ErrCodeHostFailed ErrorCode = "HOST_FAILED"

	// ErrCodeCommitFailed indicates a host call failed during commit. The
	// commit was abandoned and the committed tree was not advanced; the host
	// tree may match neither generation.
	ErrCodeCommitFailed ErrorCode = "COMMIT_FAILED"
)

// RenderError is returned from idle callbacks and Flush.
type RenderError struct {
	Code ErrorCode

	// Generation is the generation being built or committed.
	Generation int64

	// Fiber names the tag of the fiber being processed, if any.
	Fiber string

	Err error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Fiber != "" {
		return fmt.Sprintf("%s: generation %d, fiber %s: %v", e.Code, e.Generation, e.Fiber, e.Err)
	}
	return fmt.Sprintf("%s: generation %d: %v", e.Code, e.Generation, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsComponentError reports whether err is a component failure.
func IsComponentError(err error) bool {
	return hasCode(err, ErrCodeComponentFailed)
}

// IsHostError reports whether err is a render-phase host failure.
func IsHostError(err error) bool {
	return hasCode(err, ErrCodeHostFailed)
}

// IsCommitError reports whether err is an abandoned commit.
func IsCommitError(err error) bool {
	return hasCode(err, ErrCodeCommitFailed)
}
