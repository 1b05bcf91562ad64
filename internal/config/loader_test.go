package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGrid(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("parses tasks, edges and engine block", func(t *testing.T) {
		dir := t.TempDir()
		path := writeGrid(t, dir, "grid.hcl", `
task "fetch" {
  command = ["echo", "fetch"]
}

task "build" {
  command    = ["echo", "build"]
  depends_on = ["fetch"]
}

engine {
  kind    = "pool"
  limit   = 4
  timeout = "90s"
}
`)

		model, err := NewLoader().Load(context.Background(), path)
		require.NoError(t, err)

		require.Len(t, model.Tasks, 2)
		build, ok := model.Task("build")
		require.True(t, ok)
		assert.Equal(t, []string{"echo", "build"}, build.Command)
		assert.Equal(t, []string{"fetch"}, build.DependsOn)

		require.NotNil(t, model.Engine)
		assert.Equal(t, "pool", model.Engine.Kind)
		assert.Equal(t, 4, model.Engine.Limit)
		assert.Equal(t, 90*time.Second, model.Engine.Timeout)
	})

	t.Run("merges every hcl file in a directory", func(t *testing.T) {
		dir := t.TempDir()
		writeGrid(t, dir, "a.hcl", `
task "a" {
  command = ["true"]
}
`)
		writeGrid(t, dir, "b.hcl", `
task "b" {
  command    = ["true"]
  depends_on = ["a"]
}
`)

		model, err := NewLoader().Load(context.Background(), dir)
		require.NoError(t, err)
		assert.Len(t, model.Tasks, 2)
	})

	t.Run("interpolates env", func(t *testing.T) {
		t.Setenv("WEFT_TEST_BIN", "/bin/echo")
		dir := t.TempDir()
		path := writeGrid(t, dir, "grid.hcl", `
task "a" {
  command = [env.WEFT_TEST_BIN, "hi"]
}
`)

		model, err := NewLoader().Load(context.Background(), path)
		require.NoError(t, err)
		a, ok := model.Task("a")
		require.True(t, ok)
		assert.Equal(t, []string{"/bin/echo", "hi"}, a.Command)
	})

	t.Run("rejects duplicate task names across files", func(t *testing.T) {
		dir := t.TempDir()
		writeGrid(t, dir, "a.hcl", "task \"a\" {\n  command = [\"true\"]\n}\n")
		writeGrid(t, dir, "b.hcl", "task \"a\" {\n  command = [\"false\"]\n}\n")

		_, err := NewLoader().Load(context.Background(), dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declared in both")
	})

	t.Run("rejects undeclared dependencies", func(t *testing.T) {
		dir := t.TempDir()
		path := writeGrid(t, dir, "grid.hcl", `
task "a" {
  command    = ["true"]
  depends_on = ["ghost"]
}
`)

		_, err := NewLoader().Load(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared task")
	})

	t.Run("rejects self-dependency", func(t *testing.T) {
		dir := t.TempDir()
		path := writeGrid(t, dir, "grid.hcl", `
task "a" {
  command    = ["true"]
  depends_on = ["a"]
}
`)

		_, err := NewLoader().Load(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depends on itself")
	})

	t.Run("rejects an invalid timeout", func(t *testing.T) {
		dir := t.TempDir()
		path := writeGrid(t, dir, "grid.hcl", `
engine {
  timeout = "soon"
}
task "a" {
  command = ["true"]
}
`)

		_, err := NewLoader().Load(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid timeout")
	})

	t.Run("missing path is an error", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
		require.Error(t, err)
	})
}
