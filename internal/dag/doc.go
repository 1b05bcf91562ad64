// Package dag owns the dependency graph: the registry of tasks, the
// dependent->dependencies edge map, the fluent builder for expressing chains
// and fan-in/fan-out, and the Sorter, the readiness view that every engine
// drives to exhaustion.
//
// The Graph is mutable only between scheduling runs. A run operates on a
// Sorter snapshot, so engines never see builder mutations mid-flight.
package dag
