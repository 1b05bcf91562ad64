package engine

import (
	"log/slog"
	"sync"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// Pool runs tasks on a fixed-size pool of reusable worker goroutines. The
// main loop fetches ready names and submits them to the pool; workers run
// the task, mark its completion through the shared tracker lock, and signal
// the loop so it re-queries readiness instead of busy-spinning. Every
// submitted task is awaited before Start returns.
type Pool struct {
	name   string
	graph  *dag.Graph
	limit  int
	logger *slog.Logger
}

// NewPool creates a bounded worker-pool engine. Limit is the worker count
// and must be positive.
func NewPool(name string, g *dag.Graph, opts Options) (*Pool, error) {
	if opts.Limit <= 0 {
		return nil, &ConfigError{Engine: name, Reason: "worker count must be positive"}
	}
	return &Pool{name: name, graph: g, limit: opts.Limit, logger: opts.Logger}, nil
}

// Name returns the engine's name.
func (e *Pool) Name() string { return e.name }

// Start drives the graph to exhaustion and returns the aggregated results.
func (e *Pool) Start() (task.Results, error) {
	tr, err := newTracker(e.graph, e.logger)
	if err != nil {
		return nil, err
	}

	total := e.graph.Len()
	// Buffered to the graph size so submission never blocks the loop.
	submissions := make(chan *task.Task, total)
	finished := make(chan struct{}, total)

	var workers sync.WaitGroup
	for i := 0; i < e.limit; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for tk := range submissions {
				out, err := tk.Start()
				tr.complete(tk.Name(), out, err)
				finished <- struct{}{}
			}
		}()
	}

	inFlight := 0
	for tr.sorter.IsActive() {
		ready := tr.sorter.GetReady()
		if len(ready) == 0 && inFlight == 0 {
			// Stalled by a bookkeeping fault; finish surfaces it.
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
			tr.logger.Debug("task submitted", "engine", e.name, "task", name)
			inFlight++
			submissions <- tk
		}
		if inFlight > 0 {
			// Readiness only changes on completion, so sleep until one.
			<-finished
			inFlight--
		}
	}

	// Drain any completions still in flight, then retire the pool.
	for inFlight > 0 {
		<-finished
		inFlight--
	}
	close(submissions)
	workers.Wait()

	return tr.finish()
}
