package ir

import "fmt"

// InvariantError reports a violated structural invariant of the IR.
//
// Invariant violations indicate a bug in the producer of the IR or in a pass,
// never a user error, so they are raised as panics by Assertf. The pipeline
// boundary recovers them and turns them into ordinary errors.
type InvariantError struct {
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "xir: " + e.Message
}

// Assertf panics with an *InvariantError when cond is false.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
	}
}
