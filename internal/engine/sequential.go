package engine

import (
	"fmt"
	"log/slog"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// Sequential runs every task in one goroutine, walking the graph's static
// topological order. It is the correctness baseline: no locking, no
// concurrency, and, unlike the concurrent engines, the first task error
// aborts the remaining work and propagates to the caller.
type Sequential struct {
	name   string
	graph  *dag.Graph
	logger *slog.Logger
}

// NewSequential creates a sequential engine for the given graph.
func NewSequential(name string, g *dag.Graph) *Sequential {
	return &Sequential{name: name, graph: g, logger: slog.Default()}
}

// WithLogger replaces the engine's logger and returns the engine.
func (e *Sequential) WithLogger(logger *slog.Logger) *Sequential {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Name returns the engine's name.
func (e *Sequential) Name() string { return e.name }

// Start runs the graph to completion, one task at a time.
func (e *Sequential) Start() (task.Results, error) {
	order, err := e.graph.SortedNames()
	if err != nil {
		return nil, err
	}

	results := make(task.Results, len(order))
	for _, name := range order {
		tk, ok := e.graph.Task(name)
		if !ok {
			return nil, fmt.Errorf("task %q in static order but not registered", name)
		}
		e.logger.Debug("task dispatched", "engine", e.name, "task", name)
		out, err := tk.Start()
		if err != nil {
			// Abort-on-first-error is this engine's documented contract.
			return nil, fmt.Errorf("task %q: %w", name, err)
		}
		results[name] = task.Result{Output: out}
		e.logger.Debug("task done", "engine", e.name, "task", name)
	}
	return results, nil
}
