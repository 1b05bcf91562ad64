package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/weftlab/weft/internal/ctxlog"
)

// Loader parses HCL grid files into a Model.
type Loader struct{}

// NewLoader creates a new HCL grid loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of a grid file.
type fileRoot struct {
	Tasks  []*taskBlock `hcl:"task,block"`
	Engine *engineBlock `hcl:"engine,block"`
}

type taskBlock struct {
	Name      string   `hcl:"name,label"`
	Command   []string `hcl:"command"`
	Dir       string   `hcl:"dir,optional"`
	DependsOn []string `hcl:"depends_on,optional"`
}

type engineBlock struct {
	Kind    string `hcl:"kind,optional"`
	Limit   int    `hcl:"limit,optional"`
	Timeout string `hcl:"timeout,optional"`
}

// Load parses every grid file reachable from the given paths (files or
// directories) and merges them into one Model. Task names must be unique
// across files; at most one engine block may appear.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("grid loader started", "path_count", len(paths))

	files, err := findGridFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl grid files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("discovered grid files", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := envEvalContext()

	model := &Model{}
	seen := make(map[string]string)
	for _, path := range files {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", path, diags)
		}

		for _, tb := range root.Tasks {
			if prev, dup := seen[tb.Name]; dup {
				return nil, fmt.Errorf("task %q declared in both %s and %s", tb.Name, prev, path)
			}
			seen[tb.Name] = path
			model.Tasks = append(model.Tasks, &TaskSpec{
				Name:      tb.Name,
				Command:   tb.Command,
				Dir:       tb.Dir,
				DependsOn: tb.DependsOn,
			})
		}

		if root.Engine != nil {
			if model.Engine != nil {
				return nil, fmt.Errorf("duplicate engine block in %s", path)
			}
			spec, err := root.Engine.toSpec()
			if err != nil {
				return nil, fmt.Errorf("engine block in %s: %w", path, err)
			}
			model.Engine = spec
		}
	}

	if err := validateEdges(model); err != nil {
		return nil, err
	}
	logger.Debug("grid loaded", "tasks", len(model.Tasks))
	return model, nil
}

func (b *engineBlock) toSpec() (*EngineSpec, error) {
	spec := &EngineSpec{Kind: b.Kind, Limit: b.Limit}
	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", b.Timeout, err)
		}
		spec.Timeout = d
	}
	return spec, nil
}

// validateEdges ensures every depends_on entry names a declared task and no
// task depends on itself.
func validateEdges(model *Model) error {
	for _, t := range model.Tasks {
		for _, dep := range t.DependsOn {
			if dep == t.Name {
				return fmt.Errorf("task %q depends on itself", t.Name)
			}
			if _, ok := model.Task(dep); !ok {
				return fmt.Errorf("task %q depends on undeclared task %q", t.Name, dep)
			}
		}
	}
	return nil
}

// findGridFiles resolves each path to the sorted set of .hcl files it
// contains: the path itself when it is a file, its immediate .hcl children
// when it is a directory.
func findGridFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("grid path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading grid directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".hcl" {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// envEvalContext exposes the process environment to grid expressions as the
// `env` object, so commands can reference env.HOME and friends.
func envEvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}
