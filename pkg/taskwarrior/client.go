package taskwarrior

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// maxLine bounds one exported task; annotations can make lines long.
const maxLine = 4 << 20

type Client struct {
	// Binary is the task executable, "task" by default.
	Binary string
}

func NewClient() *Client {
	return &Client{Binary: "task"}
}

// GetTasks runs `task <filter> export` with hooks and messages disabled.
func (c *Client) GetTasks(ctx context.Context, filter []string) ([]Task, error) {
	args := append([]string{"rc.hooks=0", "rc.verbose=nothing", "rc.json.array=on"}, filter...)
	args = append(args, "export")
	cmd := exec.CommandContext(ctx, c.Binary, args...)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal(output, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taskwarrior output: %w", err)
	}
	return tasks, nil
}

// ParseTask parses a single task JSON from an io.Reader
func (c *Client) ParseTask(r io.Reader) (Task, error) {
	var task Task
	if err := json.NewDecoder(r).Decode(&task); err != nil {
		return Task{}, fmt.Errorf("failed to decode task json: %w", err)
	}
	return task, nil
}

// ParseTasks reads one task per line, the format hooks receive on stdin
// (old and new task for on-modify). Blank lines are skipped.
func (c *Client) ParseTasks(r io.Reader) ([]Task, error) {
	tasks, _, err := c.ParseLines(r)
	return tasks, err
}

// ParseLines is ParseTasks that also returns each task's line as read, so a
// hook can hand Taskwarrior back every attribute, including ones Task does not
// model (depends, wait, recur, other UDAs).
func (c *Client) ParseLines(r io.Reader) ([]Task, [][]byte, error) {
	var (
		tasks []Task
		raw   [][]byte
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var task Task
		if err := json.Unmarshal(b, &task); err != nil {
			return nil, nil, fmt.Errorf("line %d: failed to decode task json: %w", line, err)
		}
		tasks = append(tasks, task)
		raw = append(raw, bytes.Clone(b))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading tasks: %w", err)
	}
	return tasks, raw, nil
}

// HookInput splits hook input into the previous snapshot (nil for on-add)
// and the new one.
func HookInput(tasks []Task) (prev *Task, next Task, err error) {
	switch len(tasks) {
	case 1:
		return nil, tasks[0], nil
	case 2:
		return &tasks[0], tasks[1], nil
	}
	return nil, Task{}, fmt.Errorf("hook expects one or two tasks, got %d", len(tasks))
}
