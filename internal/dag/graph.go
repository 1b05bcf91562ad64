package dag

import (
	"sort"
	"sync"

	"github.com/weftlab/weft/internal/task"
)

// Graph is the registry of tasks plus the dependent->dependencies edge map.
// All operations on the graph are concurrency-safe, though callers are
// expected to finish building before handing the graph to an engine.
type Graph struct {
	// mu protects every field below.
	mu sync.RWMutex
	// tasks stores all registered tasks, keyed by their unique name.
	// Re-adding a name overwrites the task but preserves its dependency set.
	tasks map[string]*task.Task
	// edges maps a dependent's name to the set of names it depends on.
	// An absent or empty set means the task is immediately runnable.
	edges map[string]map[string]struct{}
	// selection is builder-only state: the frontier Then and When operate
	// on, updated by Do and Then. It is never consulted during a run.
	selection []*task.Task
	// err is the sticky builder usage error, surfaced by Err and again by
	// NewSorter before any task is dispatched.
	err error
}

// New creates an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		tasks: make(map[string]*task.Task),
		edges: make(map[string]map[string]struct{}),
	}
}

// Add registers dependent and each dependency if unseen, then unions the
// dependencies' names into dependent's dependency set. Duplicate edges are
// idempotent. Returns the graph for chaining.
func (g *Graph) Add(dependent *task.Task, dependencies ...*task.Task) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(dependent, dependencies...)
	return g
}

// add is the lock-free core of Add, shared with the fluent builder.
func (g *Graph) add(dependent *task.Task, dependencies ...*task.Task) {
	g.tasks[dependent.Name()] = dependent
	set, ok := g.edges[dependent.Name()]
	if !ok {
		set = make(map[string]struct{})
		g.edges[dependent.Name()] = set
	}
	for _, dep := range dependencies {
		g.tasks[dep.Name()] = dep
		if _, ok := g.edges[dep.Name()]; !ok {
			g.edges[dep.Name()] = make(map[string]struct{})
		}
		set[dep.Name()] = struct{}{}
	}
}

// Remove deletes t from the registry and edge map and purges its name from
// every other task's dependency set. Unknown tasks are a no-op.
func (g *Graph) Remove(t *task.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.tasks, t.Name())
	delete(g.edges, t.Name())
	for _, set := range g.edges {
		delete(set, t.Name())
	}
}

// Reset clears all tasks, edges, builder selection and any sticky builder
// error, returning the graph to its freshly-constructed state.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tasks = make(map[string]*task.Task)
	g.edges = make(map[string]map[string]struct{})
	g.selection = nil
	g.err = nil
}

// Do registers the given tasks with no new edges and makes them the current
// selection for a following Then or When.
func (g *Graph) Do(tasks ...*task.Task) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, t := range tasks {
		g.add(t)
	}
	g.selection = tasks
	return g
}

// Then adds the current selection as dependencies of each given dependent,
// then makes the dependents the new selection. Enables chains like
// Do(a).Then(b).Then(c).
func (g *Graph) Then(dependents ...*task.Task) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkBuilder("Then", dependents) {
		return g
	}
	for _, dependent := range dependents {
		g.add(dependent, g.selection...)
	}
	g.selection = dependents
	return g
}

// When adds the given dependencies to every task in the current selection
// without changing the selection.
func (g *Graph) When(dependencies ...*task.Task) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkBuilder("When", dependencies) {
		return g
	}
	for _, dependent := range g.selection {
		g.add(dependent, dependencies...)
	}
	return g
}

// checkBuilder records a usage error for a misused Then/When call and
// reports whether the call should be ignored. The first error sticks.
func (g *Graph) checkBuilder(op string, args []*task.Task) bool {
	if len(args) == 0 {
		if g.err == nil {
			g.err = &UsageError{Op: op, Reason: "called with no arguments"}
		}
		return true
	}
	if len(g.selection) == 0 {
		if g.err == nil {
			g.err = &UsageError{Op: op, Reason: "called before Do"}
		}
		return true
	}
	return false
}

// Err returns the sticky builder usage error, if any. NewSorter returns the
// same error, so a misbuilt graph can never reach dispatch.
func (g *Graph) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Len returns the number of registered tasks.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// Task returns the registered task with the given name.
func (g *Graph) Task(name string) (*task.Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[name]
	return t, ok
}

// Names returns the registered task names in sorted order.
func (g *Graph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns the registered tasks, ordered by name.
func (g *Graph) Tasks() []*task.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	tasks := make([]*task.Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, g.tasks[name])
	}
	return tasks
}

// Edges returns a copy of the raw dependency map: each task name mapped to
// its sorted dependency names.
func (g *Graph) Edges() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string][]string, len(g.edges))
	for name, set := range g.edges {
		deps := make([]string, 0, len(set))
		for dep := range set {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		out[name] = deps
	}
	return out
}

// Dependencies returns the sorted dependency names of the given task.
// Unknown names yield nil.
func (g *Graph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set, ok := g.edges[name]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(set))
	for dep := range set {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// SortedNames returns a static topological order of all task names:
// dependencies always precede their dependents, ties broken alphabetically
// so the order is deterministic. Returns a *CycleError if no such order
// exists, or the sticky builder error if the graph was misbuilt.
func (g *Graph) SortedNames() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.err != nil {
		return nil, g.err
	}
	return g.staticOrder()
}

// staticOrder runs Kahn's algorithm over the edge map. Callers hold g.mu.
func (g *Graph) staticOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.tasks))
	dependents := make(map[string][]string, len(g.tasks))
	for name := range g.tasks {
		indegree[name] = 0
	}
	for name, set := range g.edges {
		for dep := range set {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	frontier := make([]string, 0, len(indegree))
	for name, n := range indegree {
		if n == 0 {
			frontier = append(frontier, name)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(indegree))
	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]
		order = append(order, name)

		unblocked := make([]string, 0)
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				unblocked = append(unblocked, dependent)
			}
		}
		sort.Strings(unblocked)
		frontier = append(frontier, unblocked...)
		sort.Strings(frontier)
	}

	if len(order) != len(indegree) {
		// Some task never reached in-degree zero, so it sits on a cycle.
		stuck := make([]string, 0)
		for name, n := range indegree {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{Task: stuck[0]}
	}
	return order, nil
}
