package app

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/weftlab/weft/internal/config"
	"github.com/weftlab/weft/internal/task"
)

// commandTask adapts a grid task spec into a schedulable task: the start
// operation runs the command and captures its stdout/stderr as the result
// byte pair. This is the one deliberately thin collaborator the scheduler
// itself knows nothing about.
func commandTask(spec *config.TaskSpec) (*task.Task, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("task %q has an empty command", spec.Name)
	}
	argv := spec.Command
	dir := spec.Dir

	return task.New(spec.Name, func() (task.Output, error) {
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Dir = dir

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		out := task.Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
		if err != nil {
			return out, fmt.Errorf("command %q: %w", strings.Join(argv, " "), err)
		}
		return out, nil
	}), nil
}
