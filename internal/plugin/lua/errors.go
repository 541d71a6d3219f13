package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script or handler runs longer
	// than the execution timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)

// ScriptError reports a failure while running a script or a Lua handler.
type ScriptError struct {
	// Source is the script path, "<string>" or the subscription id.
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
