package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHelp(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, []string{"-h"})
	require.NoError(t, err)
}

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRunExecutesGrid(t *testing.T) {
	dir := t.TempDir()
	grid := filepath.Join(dir, "grid.hcl")
	require.NoError(t, os.WriteFile(grid, []byte(`
task "hello" {
  command = ["echo", "hi there"]
}
`), 0o644))

	var out, errW bytes.Buffer
	err := run(&out, &errW, []string{"-log-level", "error", grid})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ hello")
	assert.Contains(t, out.String(), "hi there")
}

func TestRunMissingGridFails(t *testing.T) {
	var out, errW bytes.Buffer
	err := run(&out, &errW, []string{filepath.Join(t.TempDir(), "nope.hcl")})
	require.Error(t, err)
}
