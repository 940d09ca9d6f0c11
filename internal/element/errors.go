package element

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every *MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed element")

// MalformedError reports an element that cannot be constructed.
// It is raised at construction time and never reaches a fiber tree.
type MalformedError struct {
	// Index is the offending child position, or -1 when the problem is not
	// a child.
	Index int

	Message string
}

func (e *MalformedError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("MALFORMED_ELEMENT: child %d: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("MALFORMED_ELEMENT: %s", e.Message)
}

// Is makes errors.Is(err, ErrMalformed) hold.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}
