package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStart(t *testing.T) {
	t.Run("delegates to the start operation", func(t *testing.T) {
		tk := New("greet", func() (Output, error) {
			return Output{Stdout: []byte("hello"), Stderr: []byte("noise")}, nil
		})

		assert.Equal(t, "greet", tk.Name())
		out, err := tk.Start()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(out.Stdout))
		assert.Equal(t, "noise", string(out.Stderr))
	})

	t.Run("nil start operation is an error", func(t *testing.T) {
		tk := New("hollow", nil)
		_, err := tk.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hollow")
	})
}

func TestResults(t *testing.T) {
	boom := errors.New("boom")
	r := Results{
		"ok":  {Output: Output{Stdout: []byte("fine")}},
		"bad": {Err: boom},
	}

	assert.True(t, r.Failed())
	errs := r.Errs()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs["bad"], boom)

	clean := Results{"ok": {}}
	assert.False(t, clean.Failed())
	assert.Empty(t, clean.Errs())
}

// stubStarter fakes a nested engine run.
type stubStarter struct {
	name    string
	results Results
	err     error
}

func (s *stubStarter) Name() string            { return s.name }
func (s *stubStarter) Start() (Results, error) { return s.results, s.err }

func TestFromEngine(t *testing.T) {
	t.Run("encodes the nested run into stdout", func(t *testing.T) {
		inner := &stubStarter{
			name: "inner",
			results: Results{
				"x": {Output: Output{Stdout: []byte("x-stdout"), Stderr: []byte("x-stderr")}},
				"y": {Err: errors.New("y blew up")},
			},
		}

		tk := FromEngine("nested", inner)
		out, err := tk.Start()
		require.NoError(t, err)

		payload := string(out.Stdout)
		assert.Contains(t, payload, `"x-stdout"`)
		assert.Contains(t, payload, `"x-stderr"`)
		assert.Contains(t, payload, "y blew up")
	})

	t.Run("a scheduling error fails the wrapping task", func(t *testing.T) {
		inner := &stubStarter{name: "inner", err: errors.New("cycle detected")}

		tk := FromEngine("nested", inner)
		_, err := tk.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inner")
	})
}
