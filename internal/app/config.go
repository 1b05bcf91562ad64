package app

import (
	"errors"
	"time"
)

// Config holds everything an App instance needs to run one grid.
type Config struct {
	// GridPath points at a single .hcl file or a directory of them.
	GridPath string

	// EngineKind selects the scheduling strategy. Empty falls back to the
	// grid's engine block, then to "pool".
	EngineKind string
	// Limit bounds in-flight tasks. Zero falls back to the grid's engine
	// block, then to DefaultLimit.
	Limit int
	// Timeout is the cooperative engine's per-task timeout. Zero falls
	// back to the grid, then to the engine default.
	Timeout time.Duration

	LogFormat string
	LogLevel  string
}

// DefaultLimit is the concurrency bound used when neither the CLI nor the
// grid sets one.
const DefaultLimit = 6

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.Limit < 0 {
		return nil, errors.New("Limit must not be negative")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("Timeout must not be negative")
	}
	return &cfg, nil
}
