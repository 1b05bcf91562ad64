// Package cli parses weft's command line into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/weftlab/weft/internal/app"
	"github.com/weftlab/weft/internal/engine"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started")
	flagSet := flag.NewFlagSet("weft", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
weft - a dependency-graph task runner with interchangeable engines.

Usage:
  weft [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a single .hcl grid file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	engineFlag := flagSet.String("engine", "", "Engine kind: "+kindList()+". Defaults to the grid's engine block, then 'pool'.")
	limitFlag := flagSet.Int("limit", 0, "Max in-flight tasks. 0 defers to the grid, then the default.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Per-task timeout for the cooperative engine. 0 defers to the grid, then the engine default.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("arguments parsed")

	path := ""
	if *gridFlag != "" {
		path = *gridFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	engineKind := strings.ToLower(*engineFlag)
	if engineKind != "" && !validKind(engineKind) {
		return nil, false, &ExitError{Code: 2, Message: "invalid engine: must be one of " + kindList()}
	}
	if *limitFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid limit: must not be negative"}
	}
	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid timeout: must not be negative"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		GridPath:   path,
		EngineKind: engineKind,
		Limit:      *limitFlag,
		Timeout:    *timeoutFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished")
	return config, false, nil
}

func validKind(s string) bool {
	for _, k := range engine.Kinds() {
		if string(k) == s {
			return true
		}
	}
	return false
}

func kindList() string {
	kinds := engine.Kinds()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, "|")
}
