// Package engine provides the six scheduling strategies that drive a task
// graph to exhaustion: sequential, cooperative, pool, spawn, queue and
// futures. All six share one contract (Start returning the per-task result
// map) and one readiness protocol (dag.Sorter); they differ only in how
// tasks run concurrently and how completions flow back into the sorter.
//
// Per-task failures in the concurrent engines never abort sibling work: the
// failed task's error lands in its Result entry, its dependents are recorded
// as skipped, and independent branches of the graph still run to completion.
// The sequential engine is the deliberate exception: it aborts on the first
// task error and propagates it.
package engine
