package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// Cooperative runs tasks as goroutines admitted through a weighted
// semaphore, with one coordinating loop as the sole mutator of the
// readiness view: workers deliver completions over a channel and the loop
// marks them done one at a time. Each task's start call is bounded by a
// per-task timeout; a timed-out task fails with a TimeoutError without
// cancelling sibling in-flight tasks.
type Cooperative struct {
	name    string
	graph   *dag.Graph
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

// NewCooperative creates a cooperative engine. Limit must be positive;
// a zero timeout selects DefaultTimeout and a negative one is rejected.
func NewCooperative(name string, g *dag.Graph, opts Options) (*Cooperative, error) {
	if opts.Limit <= 0 {
		return nil, &ConfigError{Engine: name, Reason: "concurrency limit must be positive"}
	}
	if opts.Timeout < 0 {
		return nil, &ConfigError{Engine: name, Reason: "timeout must not be negative"}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Cooperative{
		name:    name,
		graph:   g,
		limit:   opts.Limit,
		timeout: timeout,
		logger:  opts.Logger,
	}, nil
}

// Name returns the engine's name.
func (e *Cooperative) Name() string { return e.name }

// Start drives the graph to exhaustion and returns the aggregated results.
func (e *Cooperative) Start() (task.Results, error) {
	tr, err := newTracker(e.graph, e.logger)
	if err != nil {
		return nil, err
	}

	gate := semaphore.NewWeighted(int64(e.limit))
	completions := make(chan completion, e.graph.Len())
	inFlight := 0

	for tr.sorter.IsActive() {
		ready := tr.sorter.GetReady()
		if len(ready) == 0 && inFlight == 0 {
			// Stalled: nothing in flight and nothing can become ready.
			// Only reachable through a bookkeeping fault, which finish
			// will surface as an incomplete result map.
			break
		}
		for _, name := range ready {
			if reason, skip := tr.skipReason(name); skip {
				tr.complete(name, task.Output{}, reason)
				continue
			}
			tk, err := tr.mustTask(name)
			if err != nil {
				tr.complete(name, task.Output{}, err)
				continue
			}
			tr.logger.Debug("task dispatched", "engine", e.name, "task", name)
			inFlight++
			go func(name string, tk *task.Task) {
				if err := gate.Acquire(context.Background(), 1); err != nil {
					completions <- completion{name: name, err: err}
					return
				}
				defer gate.Release(1)
				out, err := e.startWithTimeout(tk)
				completions <- completion{name: name, out: out, err: err}
			}(name, tk)
		}

		if inFlight == 0 {
			continue
		}

		// Wait for at least one task to finish; the loop is the only
		// caller of complete, so completions are serialized.
		c := <-completions
		inFlight--
		tr.complete(c.name, c.out, c.err)
	}

	return tr.finish()
}

// startWithTimeout invokes the opaque start call in its own goroutine and
// abandons it once the deadline passes. The call itself cannot be
// interrupted; the buffered channel lets the late result be dropped.
func (e *Cooperative) startWithTimeout(tk *task.Task) (task.Output, error) {
	done := make(chan completion, 1)
	go func() {
		out, err := tk.Start()
		done <- completion{out: out, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case c := <-done:
		return c.out, c.err
	case <-timer.C:
		return task.Output{}, &TimeoutError{Task: tk.Name(), Limit: e.timeout}
	}
}
