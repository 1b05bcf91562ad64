// Package task defines the unit of schedulable work: a named, zero-argument
// start operation producing a byte pair, plus the result types engines
// aggregate per run.
package task

import (
	"encoding/json"
	"fmt"
)

// Output is the byte pair produced by a task's start operation. The naming
// follows the stdout/stderr convention of command-pipeline tooling; both
// streams are opaque to the scheduler.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// StartFunc is the start operation a Task wraps. It takes no arguments and is
// treated as an opaque blocking call by every engine.
type StartFunc func() (Output, error)

// Task is the minimal schedulable unit: a unique name and a start operation.
// A Task is immutable after construction and stateless beyond those two
// fields.
type Task struct {
	name  string
	start StartFunc
}

// New creates a Task with the given name and start operation.
func New(name string, start StartFunc) *Task {
	return &Task{name: name, start: start}
}

// Name returns the task's unique name.
func (t *Task) Name() string { return t.name }

// Start invokes the wrapped start operation.
func (t *Task) Start() (Output, error) {
	if t.start == nil {
		return Output{}, fmt.Errorf("task %q has no start operation", t.name)
	}
	return t.start()
}

// Result is the terminal outcome of one task: its output on success, or the
// error that failed it. Exactly one of the two is meaningful.
type Result struct {
	Output Output
	Err    error
}

// Results maps task names to their results. A completed scheduling run
// produces exactly one entry per registered task.
type Results map[string]Result

// Failed reports whether any entry carries an error.
func (r Results) Failed() bool {
	for _, res := range r {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// Errs returns the per-task errors keyed by name. Empty map on a clean run.
func (r Results) Errs() map[string]error {
	errs := make(map[string]error)
	for name, res := range r {
		if res.Err != nil {
			errs[name] = res.Err
		}
	}
	return errs
}

// Starter is anything that can drive a full run and hand back aggregated
// results. Engines satisfy it; FromEngine uses it to nest whole graphs as
// single tasks.
type Starter interface {
	Name() string
	Start() (Results, error)
}

// nestedResult is the JSON shape FromEngine encodes per inner task.
type nestedResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Error  string `json:"error,omitempty"`
}

// FromEngine adapts a whole engine run into a single Task, so one graph can
// appear as a node inside another. The nested run's results are JSON-encoded
// into the task's stdout stream; a scheduling-level error from the inner run
// fails the task.
func FromEngine(name string, inner Starter) *Task {
	return New(name, func() (Output, error) {
		results, err := inner.Start()
		if err != nil {
			return Output{}, fmt.Errorf("nested run %q: %w", inner.Name(), err)
		}
		encoded := make(map[string]nestedResult, len(results))
		for taskName, res := range results {
			nr := nestedResult{
				Stdout: string(res.Output.Stdout),
				Stderr: string(res.Output.Stderr),
			}
			if res.Err != nil {
				nr.Error = res.Err.Error()
			}
			encoded[taskName] = nr
		}
		payload, err := json.Marshal(encoded)
		if err != nil {
			return Output{}, fmt.Errorf("encoding nested run %q results: %w", inner.Name(), err)
		}
		return Output{Stdout: payload}, nil
	})
}
