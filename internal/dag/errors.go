package dag

import "fmt"

// CycleError reports that the edge map, interpreted dependent->dependencies,
// contains a cycle. Task names one task participating in the cycle.
type CycleError struct {
	Task string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving task '%s'", e.Task)
}

// UsageError reports misuse of the fluent builder, such as calling Then or
// When before any Do, or with no arguments. It is recorded on the graph and
// surfaced before any task is dispatched.
type UsageError struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("dag: %s: %s", e.Op, e.Reason)
}
