package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("positional grid path", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"grid.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "grid.hcl", cfg.GridPath)
		assert.Equal(t, "", cfg.EngineKind)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("all flags", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{
			"-grid", "grids/",
			"-engine", "cooperative",
			"-limit", "8",
			"-timeout", "30s",
			"-log-format", "json",
			"-log-level", "debug",
		}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "grids/", cfg.GridPath)
		assert.Equal(t, "cooperative", cfg.EngineKind)
		assert.Equal(t, 8, cfg.Limit)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("no path prints usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("invalid engine kind", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-engine", "warp", "grid.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, exitErr.Message, "invalid engine")
	})

	t.Run("negative limit", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-limit", "-2", "grid.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log format", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-format", "xml", "grid.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "log-format")
	})
}
