package engine

import (
	"log/slog"
	"sync"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// Queue hands work to a fixed set of long-lived workers over a work queue
// and collects their outcomes over a completion queue. Workers never touch
// the readiness view: a dedicated background coordinator drains the
// completion queue, records each result and marks it done, mirroring the
// topology required when workers live outside the controlling process and
// can only send finished (name, result) messages back. The coordinator
// keeps draining until the completion queue is closed, which happens only
// after every worker has stopped, so no completion is ever lost.
type Queue struct {
	name   string
	graph  *dag.Graph
	limit  int
	logger *slog.Logger
}

// NewQueue creates a queue-handoff engine. Limit is the worker count and
// must be positive.
func NewQueue(name string, g *dag.Graph, opts Options) (*Queue, error) {
	if opts.Limit <= 0 {
		return nil, &ConfigError{Engine: name, Reason: "worker count must be positive"}
	}
	return &Queue{name: name, graph: g, limit: opts.Limit, logger: opts.Logger}, nil
}

// Name returns the engine's name.
func (e *Queue) Name() string { return e.name }

// Start drives the graph to exhaustion and returns the aggregated results.
func (e *Queue) Start() (task.Results, error) {
	tr, err := newTracker(e.graph, e.logger)
	if err != nil {
		return nil, err
	}

	total := e.graph.Len()
	work := make(chan *task.Task, total)
	completions := make(chan completion, total)
	marked := make(chan struct{}, total)

	var workers sync.WaitGroup
	for i := 0; i < e.limit; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for tk := range work {
				out, err := tk.Start()
				completions <- completion{name: tk.Name(), out: out, err: err}
			}
		}()
	}

	var coordinator sync.WaitGroup
	coordinator.Add(1)
	go func() {
		defer coordinator.Done()
		// Runs until completions is closed, which the main loop does only
		// after the work queue is consumed and all workers are joined.
		for c := range completions {
			tr.complete(c.name, c.out, c.err)
			marked <- struct{}{}
		}
	}()

	inFlight := 0
	for tr.sorter.IsActive() {
		ready := tr.sorter.GetReady()
		if len(ready) == 0 && inFlight == 0 {
			// Stalled by a bookkeeping fault; finish surfaces it.
			break
		}
		for _, name := range ready {
			if reason, skip := tr.skipReason(name); skip {
				// Skips bypass the workers but still flow through the
				// completion queue so the coordinator stays the only
				// caller of complete.
				inFlight++
				completions <- completion{name: name, err: reason}
				continue
			}
			tk, err := tr.mustTask(name)
			if err != nil {
				inFlight++
				completions <- completion{name: name, err: err}
				continue
			}
			tr.logger.Debug("task queued", "engine", e.name, "task", name)
			inFlight++
			work <- tk
		}
		if inFlight > 0 {
			<-marked
			inFlight--
		}
	}

	// Drain outstanding completions, then stop workers and coordinator in
	// dependency order: no one closes completions while a worker might
	// still publish to it.
	for inFlight > 0 {
		<-marked
		inFlight--
	}
	close(work)
	workers.Wait()
	close(completions)
	coordinator.Wait()

	return tr.finish()
}
