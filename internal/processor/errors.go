package processor

import "fmt"

// StartupError means a run could not begin; the processor stays idle.
type StartupError struct {
	Op  string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("processor startup: %s: %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// HandlingFailure is one item that could not be handled. It is logged and
// never ends the loop.
type HandlingFailure struct {
	ItemID string
	Err    error
}

func (e *HandlingFailure) Error() string {
	return fmt.Sprintf("handle %s: %v", e.ItemID, e.Err)
}

func (e *HandlingFailure) Unwrap() error { return e.Err }
