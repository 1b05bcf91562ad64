// Package app wires the pieces of a weft run together: it loads the grid,
// builds the dependency graph, selects and configures an engine, and
// reports the aggregated results.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/weftlab/weft/internal/config"
	"github.com/weftlab/weft/internal/ctxlog"
	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

// App encapsulates one configured run: the loaded grid model, the logger,
// and the output writer for the result report.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	model  *config.Model
}

// New constructs an App: it builds the isolated logger and loads the grid
// into the format-agnostic model. A load failure is a startup error.
func New(outW, errW io.Writer, cfg *Config, loader *config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("logger configured")

	model, err := loader.Load(ctx, cfg.GridPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load grid: %w", err)
	}
	logger.Debug("grid loaded into unified model", "tasks", len(model.Tasks))

	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		model:  model,
	}, nil
}

// buildGraph turns the grid model into a dependency graph of command tasks.
func (a *App) buildGraph() (*dag.Graph, error) {
	tasks := make(map[string]*task.Task, len(a.model.Tasks))
	for _, spec := range a.model.Tasks {
		tk, err := commandTask(spec)
		if err != nil {
			return nil, err
		}
		tasks[spec.Name] = tk
	}

	g := dag.New()
	for _, spec := range a.model.Tasks {
		deps := make([]*task.Task, 0, len(spec.DependsOn))
		for _, dep := range spec.DependsOn {
			deps = append(deps, tasks[dep])
		}
		g.Add(tasks[spec.Name], deps...)
	}
	return g, nil
}
