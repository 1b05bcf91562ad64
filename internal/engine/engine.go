package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// Engine is a concurrency strategy that drives a dependency graph to
// exhaustion and aggregates per-task results. Start either returns a result
// map with exactly one entry per registered task, or a scheduling-level
// error (cycle, builder misuse, internal fault) raised before or instead of
// a complete run.
type Engine interface {
	Name() string
	Start() (task.Results, error)
}

// Options carries per-engine tuning. Limit bounds in-flight tasks for every
// concurrent engine; Timeout applies to the cooperative engine only.
type Options struct {
	// Limit is the admission gate: max coroutines, worker goroutines or
	// pool slots, depending on the engine. Must be positive.
	Limit int
	// Timeout bounds a single task's start call in the cooperative engine.
	// Zero selects the default of ten minutes; negative is a config error.
	Timeout time.Duration
	// Logger receives dispatch and completion events. Nil falls back to
	// slog.Default.
	Logger *slog.Logger
}

// DefaultTimeout is the cooperative engine's per-task timeout when Options
// leaves it unset.
const DefaultTimeout = 10 * time.Minute

// ConfigError reports an invalid engine configuration, detected at
// construction time before any task runs.
type ConfigError struct {
	Engine string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine %s: %s", e.Engine, e.Reason)
}

// ErrTimeout matches any per-task timeout error via errors.Is.
var ErrTimeout = errors.New("task timed out")

// TimeoutError records that one task's start call exceeded the configured
// deadline. Sibling in-flight tasks are unaffected.
type TimeoutError struct {
	Task  string
	Limit time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded %s", e.Task, e.Limit)
}

// Is makes errors.Is(err, ErrTimeout) hold for TimeoutError values.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Kind names one of the six scheduling strategies.
type Kind string

const (
	KindSequential  Kind = "sequential"
	KindCooperative Kind = "cooperative"
	KindPool        Kind = "pool"
	KindSpawn       Kind = "spawn"
	KindQueue       Kind = "queue"
	KindFutures     Kind = "futures"
)

// Kinds lists every valid engine kind, in documentation order.
func Kinds() []Kind {
	return []Kind{KindSequential, KindCooperative, KindPool, KindSpawn, KindQueue, KindFutures}
}

// New constructs the engine of the given kind, named after the kind itself.
func New(kind Kind, g *dag.Graph, opts Options) (Engine, error) {
	name := string(kind)
	switch kind {
	case KindSequential:
		return NewSequential(name, g).WithLogger(opts.Logger), nil
	case KindCooperative:
		return NewCooperative(name, g, opts)
	case KindPool:
		return NewPool(name, g, opts)
	case KindSpawn:
		return NewSpawn(name, g, opts)
	case KindQueue:
		return NewQueue(name, g, opts)
	case KindFutures:
		return NewFutures(name, g, opts)
	default:
		return nil, &ConfigError{Engine: name, Reason: "unknown engine kind"}
	}
}

// completion is the message a finished task sends back toward the sorter.
type completion struct {
	name string
	out  task.Output
	err  error
}

// tracker is the shared per-run bookkeeping every concurrent engine leans
// on: the result map, the skip policy, and the single serialization point
// for mutating the readiness view. Each key of results is written exactly
// once per run.
type tracker struct {
	graph   *dag.Graph
	sorter  *dag.Sorter
	logger  *slog.Logger
	mu      sync.Mutex
	results task.Results
	fault   error
}

// newTracker validates the graph and snapshots its readiness view. Any
// builder or cycle error surfaces here, before dispatch.
func newTracker(g *dag.Graph, logger *slog.Logger) (*tracker, error) {
	sorter, err := g.NewSorter()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tracker{
		graph:   g,
		sorter:  sorter,
		logger:  logger,
		results: make(task.Results, g.Len()),
	}, nil
}

// complete records the task's outcome and marks it done in the sorter.
// Results write and Done happen under one lock, so only one completion
// mutates the readiness view at a time.
func (t *tracker) complete(name string, out task.Output, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.results[name]; dup {
		if t.fault == nil {
			t.fault = fmt.Errorf("task %q completed twice", name)
		}
		return
	}
	t.results[name] = task.Result{Output: out, Err: err}
	if doneErr := t.sorter.Done(name); doneErr != nil && t.fault == nil {
		t.fault = doneErr
	}
	if err != nil {
		t.logger.Debug("task failed", "task", name, "error", err)
	} else {
		t.logger.Debug("task done", "task", name)
	}
}

// skipReason reports whether the named task must be skipped because an
// upstream dependency failed or was itself skipped. Only called once the
// task is ready, so every dependency's result is already recorded.
func (t *tracker) skipReason(name string) (error, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, dep := range t.graph.Dependencies(name) {
		if res, ok := t.results[dep]; ok && res.Err != nil {
			return fmt.Errorf("skipped due to upstream failure of '%s'", dep), true
		}
	}
	return nil, false
}

// finish hands the result map to the caller, surfacing any internal fault
// or an incomplete map as a scheduling-level error.
func (t *tracker) finish() (task.Results, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fault != nil {
		return nil, t.fault
	}
	if len(t.results) != t.graph.Len() {
		return nil, fmt.Errorf("run ended with %d of %d results", len(t.results), t.graph.Len())
	}
	return t.results, nil
}

// mustTask fetches a registered task by name. The sorter only hands out
// registered names, so a miss is an internal fault.
func (t *tracker) mustTask(name string) (*task.Task, error) {
	tk, ok := t.graph.Task(name)
	if !ok {
		return nil, fmt.Errorf("task %q handed out by sorter but not registered", name)
	}
	return tk, nil
}
