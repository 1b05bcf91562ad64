package app

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/weftlab/weft/internal/engine"
	"github.com/weftlab/weft/internal/task"
)

// engineOptions resolves the effective engine kind, limit and timeout:
// CLI flags win over the grid's engine block, which wins over defaults.
func (a *App) engineOptions() (engine.Kind, engine.Options) {
	kind := a.cfg.EngineKind
	limit := a.cfg.Limit
	timeout := a.cfg.Timeout

	if spec := a.model.Engine; spec != nil {
		if kind == "" {
			kind = spec.Kind
		}
		if limit == 0 {
			limit = spec.Limit
		}
		if timeout == 0 {
			timeout = spec.Timeout
		}
	}
	if kind == "" {
		kind = string(engine.KindPool)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	return engine.Kind(kind), engine.Options{Limit: limit, Timeout: timeout}
}

// Run executes the loaded grid and writes the result report. It returns an
// error for scheduling-level failures and when any task in the run failed.
func (a *App) Run() error {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	graph, err := a.buildGraph()
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("dependency graph built", "task_count", graph.Len())

	kind, opts := a.engineOptions()
	opts.Logger = logger
	eng, err := engine.New(kind, graph, opts)
	if err != nil {
		return err
	}

	logger.Info("starting run", "engine", eng.Name(), "tasks", graph.Len(), "limit", opts.Limit)
	started := time.Now()
	results, err := eng.Start()
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	logger.Info("run finished", "elapsed", time.Since(started), "failed", results.Failed())

	a.report(results)
	if results.Failed() {
		return fmt.Errorf("%d of %d tasks failed", len(results.Errs()), len(results))
	}
	return nil
}

// report writes one line per task, in name order, to the output writer.
func (a *App) report(results task.Results) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		if res.Err != nil {
			fmt.Fprintf(a.outW, "✗ %s: %v\n", name, res.Err)
			continue
		}
		fmt.Fprintf(a.outW, "✓ %s\n", name)
		if len(res.Output.Stdout) > 0 {
			fmt.Fprintf(a.outW, "%s", res.Output.Stdout)
			if res.Output.Stdout[len(res.Output.Stdout)-1] != '\n' {
				fmt.Fprintln(a.outW)
			}
		}
	}
}
