package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// pollInterval is how long the futures engine sleeps when a poll pass finds
// no completed future. Readiness only changes on completion, so spinning
// faster buys nothing.
const pollInterval = time.Millisecond

// future is one outstanding submission: its task name and the channel the
// pool worker delivers the outcome on. A future is consumed at most once;
// the engine removes it from the outstanding set the moment its outcome is
// taken.
type future struct {
	name    string
	outcome chan completion
}

// Futures submits every newly-ready task to a fixed executor pool and keeps
// a future per submission. The main loop polls the outstanding futures
// non-blocking each iteration, records any completed one and marks it done.
// There is no background coordinator; the poll pass is the price for that.
type Futures struct {
	name   string
	graph  *dag.Graph
	limit  int
	logger *slog.Logger
}

// NewFutures creates a future-polling pool engine. Limit is the pool size
// and must be positive.
func NewFutures(name string, g *dag.Graph, opts Options) (*Futures, error) {
	if opts.Limit <= 0 {
		return nil, &ConfigError{Engine: name, Reason: "pool size must be positive"}
	}
	return &Futures{name: name, graph: g, limit: opts.Limit, logger: opts.Logger}, nil
}

// Name returns the engine's name.
func (e *Futures) Name() string { return e.name }

// submission pairs a task with the future its outcome resolves.
type submission struct {
	tk  *task.Task
	fut *future
}

// Start drives the graph to exhaustion and returns the aggregated results.
func (e *Futures) Start() (task.Results, error) {
	tr, err := newTracker(e.graph, e.logger)
	if err != nil {
		return nil, err
	}

	total := e.graph.Len()
	submissions := make(chan submission, total)

	var workers sync.WaitGroup
	for i := 0; i < e.limit; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for s := range submissions {
				out, err := s.tk.Start()
				s.fut.outcome <- completion{name: s.fut.name, out: out, err: err}
			}
		}()
	}

	var outstanding []*future
	for tr.sorter.IsActive() {
		ready := tr.sorter.GetReady()
		if len(ready) == 0 && len(outstanding) == 0 {
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
			fut := &future{name: name, outcome: make(chan completion, 1)}
			outstanding = append(outstanding, fut)
			submissions <- submission{tk: tk, fut: fut}
		}

		if len(outstanding) == 0 {
			continue
		}

		// One non-blocking pass over every outstanding future. A consumed
		// future is dropped from the set, so it is never checked twice.
		remaining := outstanding[:0]
		progressed := false
		for _, fut := range outstanding {
			select {
			case c := <-fut.outcome:
				tr.complete(c.name, c.out, c.err)
				progressed = true
			default:
				remaining = append(remaining, fut)
			}
		}
		outstanding = remaining
		if !progressed {
			time.Sleep(pollInterval)
		}
	}

	close(submissions)
	workers.Wait()

	return tr.finish()
}
