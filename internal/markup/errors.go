package markup

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// DecodeError reports a malformed tree with its source position.
type DecodeError struct {
	// Pos is "file:line:col", or empty when the source has no positions.
	Pos string

	// Path locates the offending value, e.g. "tree.children[1].props.id".
	Path string

	Message string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	switch {
	case e.Pos != "" && e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Path, msg)
	case e.Pos != "":
		return fmt.Sprintf("%s: %s", e.Pos, msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, msg)
	default:
		return msg
	}
}

// Unwrap returns the underlying error, if any.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func errorAt(r *raw, path, format string, args ...any) *DecodeError {
	pos := ""
	if r != nil {
		pos = r.pos
	}
	return &DecodeError{Pos: pos, Path: path, Message: fmt.Sprintf(format, args...)}
}

func cuePos(p token.Pos) string {
	if !p.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename(), p.Line(), p.Column())
}
