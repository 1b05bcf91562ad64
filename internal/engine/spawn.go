package engine

import (
	"log/slog"
	"sync"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// Spawn launches one goroutine per ready task, admission-gated by a
// counting semaphore sized to the configured limit: a goroutine past the
// limit blocks at the gate until a slot frees. Every spawned goroutine is
// tracked in a WaitGroup and joined before Start returns; the shared
// tracker mutex guards the result map and the readiness view.
type Spawn struct {
	name   string
	graph  *dag.Graph
	limit  int
	logger *slog.Logger
}

// NewSpawn creates a goroutine-per-task engine. Limit bounds concurrently
// running tasks and must be positive.
func NewSpawn(name string, g *dag.Graph, opts Options) (*Spawn, error) {
	if opts.Limit <= 0 {
		return nil, &ConfigError{Engine: name, Reason: "concurrency limit must be positive"}
	}
	return &Spawn{name: name, graph: g, limit: opts.Limit, logger: opts.Logger}, nil
}

// Name returns the engine's name.
func (e *Spawn) Name() string { return e.name }

// Start drives the graph to exhaustion and returns the aggregated results.
func (e *Spawn) Start() (task.Results, error) {
	tr, err := newTracker(e.graph, e.logger)
	if err != nil {
		return nil, err
	}

	gate := make(chan struct{}, e.limit)
	finished := make(chan struct{}, e.graph.Len())
	var spawned sync.WaitGroup

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
			tr.logger.Debug("task spawned", "engine", e.name, "task", name)
			inFlight++
			spawned.Add(1)
			go func(tk *task.Task) {
				defer spawned.Done()
				gate <- struct{}{}
				defer func() { <-gate }()
				out, err := tk.Start()
				tr.complete(tk.Name(), out, err)
				finished <- struct{}{}
			}(tk)
		}
		if inFlight > 0 {
			<-finished
			inFlight--
		}
	}

	for inFlight > 0 {
		<-finished
		inFlight--
	}
	spawned.Wait()

	return tr.finish()
}
