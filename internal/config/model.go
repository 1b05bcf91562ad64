package config

import "time"

// Model is the format-agnostic representation of a grid: every declared
// task plus the optional engine selection.
type Model struct {
	Tasks  []*TaskSpec
	Engine *EngineSpec
}

// TaskSpec is the format-agnostic representation of a `task` block.
type TaskSpec struct {
	Name      string
	Command   []string
	Dir       string
	DependsOn []string
}

// EngineSpec is the format-agnostic representation of an `engine` block.
// Zero values mean "not set"; the app applies its own defaults.
type EngineSpec struct {
	Kind    string
	Limit   int
	Timeout time.Duration
}

// Task returns the spec with the given name.
func (m *Model) Task(name string) (*TaskSpec, bool) {
	for _, t := range m.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
