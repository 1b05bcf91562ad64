package dag

import (
	"fmt"
	"sort"
	"sync"
)

// Sorter is the readiness view of one scheduling run: a snapshot of the
// graph's topology with in-degree counters that are decremented as
// dependencies complete. It is safe for concurrent use; GetReady and Done
// interleaved from any number of goroutines never hand the same task out
// twice, and a task becomes ready only after every one of its dependencies
// has individually been marked done.
type Sorter struct {
	mu sync.Mutex
	// waiting counts the not-yet-done dependencies per blocked task.
	waiting map[string]int
	// dependents is the reverse adjacency: dependency -> dependent names.
	dependents map[string][]string
	// ready holds unblocked names not yet handed out by GetReady.
	ready []string
	// handed tracks names returned by GetReady and not yet done.
	handed map[string]struct{}
	// done tracks completed names.
	done  map[string]struct{}
	total int
}

// NewSorter validates the graph and snapshots it for a scheduling run. It
// returns the sticky builder error if the graph was misbuilt, or a
// *CycleError if the edge map contains a cycle. Neither case dispatches any
// task.
func (g *Graph) NewSorter() (*Sorter, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.err != nil {
		return nil, g.err
	}
	// Acyclicity must be established before anything runs.
	if _, err := g.staticOrder(); err != nil {
		return nil, err
	}

	s := &Sorter{
		waiting:    make(map[string]int, len(g.tasks)),
		dependents: make(map[string][]string, len(g.tasks)),
		handed:     make(map[string]struct{}),
		done:       make(map[string]struct{}),
		total:      len(g.tasks),
	}
	for name := range g.tasks {
		n := len(g.edges[name])
		if n == 0 {
			s.ready = append(s.ready, name)
			continue
		}
		s.waiting[name] = n
		for dep := range g.edges[name] {
			s.dependents[dep] = append(s.dependents[dep], name)
		}
	}
	sort.Strings(s.ready)
	return s, nil
}

// GetReady returns the names whose dependency sets are fully satisfied and
// which have not been returned before. Each name is handed out by at most
// one GetReady call per run, independent of whether Done has been called on
// it yet.
func (s *Sorter) GetReady() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ready) == 0 {
		return nil
	}
	out := make([]string, len(s.ready))
	copy(out, s.ready)
	s.ready = s.ready[:0]
	for _, name := range out {
		s.handed[name] = struct{}{}
	}
	sort.Strings(out)
	return out
}

// Done marks a task finished and promotes any dependent whose last
// outstanding dependency this was. Calling Done on a name that was never
// returned by GetReady, or on a name already done, is an error.
func (s *Sorter) Done(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.done[name]; ok {
		return fmt.Errorf("task %q already marked done", name)
	}
	if _, ok := s.handed[name]; !ok {
		return fmt.Errorf("task %q was not returned by GetReady", name)
	}
	delete(s.handed, name)
	s.done[name] = struct{}{}

	for _, dependent := range s.dependents[name] {
		s.waiting[dependent]--
		if s.waiting[dependent] == 0 {
			delete(s.waiting, dependent)
			s.ready = append(s.ready, dependent)
		}
	}
	return nil
}

// IsActive reports whether any task remains unscheduled or in flight. Once
// it returns false every task has reached a terminal state and the run's
// result map is complete.
func (s *Sorter) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done) < s.total
}
