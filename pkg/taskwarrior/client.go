package taskwarrior

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes the task binary and returns its stdout.
type Runner func(args ...string) ([]byte, error)

type Client struct {
	run Runner
}

func NewClient() *Client {
	return &Client{run: execTask}
}

// NewClientWithRunner is NewClient with a substitute for the task binary.
func NewClientWithRunner(run Runner) *Client {
	return &Client{run: run}
}

func execTask(args ...string) ([]byte, error) {
	output, err := exec.Command("task", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}
	return output, nil
}

// GetTasks exports the tasks matching filter. Hooks are disabled for the
// export so tally never triggers other integrations.
func (c *Client) GetTasks(filter []string) ([]Task, error) {
	args := append(append([]string{}, filter...), "export", "rc.hooks=0")
	output, err := c.run(args...)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if err := json.Unmarshal(output, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taskwarrior output: %w", err)
	}
	return tasks, nil
}

// Catalog loads the tasks matching filter for display.
func (c *Client) Catalog(filter []string) (Catalog, error) {
	tasks, err := c.GetTasks(filter)
	if err != nil {
		return nil, err
	}
	cat := make(Catalog, len(tasks))
	for _, t := range tasks {
		if t.Status == DELETED {
			continue
		}
		cat[t.UUID] = t
	}
	return cat, nil
}

// Catalog indexes tasks by uuid. Lookups are for display only: a reference
// that is not in the catalog is still a valid timer task.
type Catalog map[string]Task

// Describe returns the task's description, prefixed with its project, or ""
// when the reference is unknown.
func (c Catalog) Describe(taskID string) string {
	t, ok := c[taskID]
	if !ok {
		return ""
	}
	if t.Project != "" {
		return t.Project + ": " + t.Description
	}
	return t.Description
}

// Match resolves a uuid prefix to a full uuid. It returns the input
// unchanged when nothing or more than one task matches.
func (c Catalog) Match(prefix string) string {
	if _, ok := c[prefix]; ok {
		return prefix
	}
	match := ""
	for id := range c {
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return prefix
			}
			match = id
		}
	}
	if match == "" {
		return prefix
	}
	return match
}
