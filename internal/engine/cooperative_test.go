package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlab/weft/internal/dag"
	"github.com/weftlab/weft/internal/task"
)

func sleepTask(name string, d time.Duration) *task.Task {
	return task.New(name, func() (task.Output, error) {
		time.Sleep(d)
		return task.Output{Stdout: []byte(name + "-stdout")}, nil
	})
}

func TestCooperativeTimeout(t *testing.T) {
	t.Run("a timed-out task fails with ErrTimeout", func(t *testing.T) {
		g := dag.New()
		g.Do(sleepTask("slow", 500*time.Millisecond))

		e, err := NewCooperative("cooperative", g, Options{Limit: 2, Timeout: 20 * time.Millisecond})
		require.NoError(t, err)

		results, err := e.Start()
		require.NoError(t, err)
		require.Len(t, results, 1)

		require.Error(t, results["slow"].Err)
		assert.True(t, errors.Is(results["slow"].Err, ErrTimeout))

		var timeoutErr *TimeoutError
		require.ErrorAs(t, results["slow"].Err, &timeoutErr)
		assert.Equal(t, "slow", timeoutErr.Task)
	})

	t.Run("timeout does not stop sibling in-flight tasks", func(t *testing.T) {
		g := dag.New()
		g.Do(sleepTask("slow", 500*time.Millisecond), sleepTask("quick", time.Millisecond))

		e, err := NewCooperative("cooperative", g, Options{Limit: 2, Timeout: 50 * time.Millisecond})
		require.NoError(t, err)

		results, err := e.Start()
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.ErrorIs(t, results["slow"].Err, ErrTimeout)
		require.NoError(t, results["quick"].Err)
		assert.Equal(t, "quick-stdout", string(results["quick"].Output.Stdout))
	})

	t.Run("a timed-out dependency skips its dependents", func(t *testing.T) {
		g := dag.New()
		g.Do(sleepTask("slow", 500*time.Millisecond)).Then(okTask("after"))

		e, err := NewCooperative("cooperative", g, Options{Limit: 2, Timeout: 20 * time.Millisecond})
		require.NoError(t, err)

		results, err := e.Start()
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.ErrorIs(t, results["slow"].Err, ErrTimeout)
		require.Error(t, results["after"].Err)
		assert.Contains(t, results["after"].Err.Error(), "upstream failure of 'slow'")
	})
}

func TestCooperativeDefaultTimeout(t *testing.T) {
	g := dag.New()
	g.Do(okTask("a"))

	e, err := NewCooperative("cooperative", g, Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, e.timeout)
}

// peakCounter tracks the high-water mark of concurrently running tasks.
type peakCounter struct{ sync.Mutex }

func (c *peakCounter) enter(running, peak *int) {
	c.Lock()
	*running++
	if *running > *peak {
		*peak = *running
	}
	c.Unlock()
}

func (c *peakCounter) leave(running *int) {
	c.Lock()
	*running--
	c.Unlock()
}

func TestCooperativeAdmissionGate(t *testing.T) {
	// With a gate of 1, two root tasks must run strictly one after the
	// other even though both are dispatched together.
	var running, peak int
	var mu peakCounter
	mk := func(name string) *task.Task {
		return task.New(name, func() (task.Output, error) {
			mu.enter(&running, &peak)
			time.Sleep(10 * time.Millisecond)
			mu.leave(&running)
			return task.Output{}, nil
		})
	}

	g := dag.New()
	g.Do(mk("a"), mk("b"), mk("c"))

	e, err := NewCooperative("cooperative", g, Options{Limit: 1, Timeout: time.Minute})
	require.NoError(t, err)

	_, err = e.Start()
	require.NoError(t, err)
	assert.Equal(t, 1, peak, "gate of 1 must serialize execution")
}
