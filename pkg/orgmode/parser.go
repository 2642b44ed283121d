package orgmode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

var (
	headlineRegex = regexp.MustCompile(`^\*+\s+(TODO|STARTED|WAITING|REWORK|DONE)\s*(?:\[#([A-C])\])?\s*(.*?)(?:\s+(:(\w+(:\w+)*):))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	scheduleRegex = regexp.MustCompile(`SCHEDULED:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	closedRegex   = regexp.MustCompile(`CLOSED:\s+\[(\d{4}-\d{2}-\d{2})[^\]]*\]`)
	idRegex       = regexp.MustCompile(`^:ID:\s+(\S+)`)
	ownerRegex    = regexp.MustCompile(`^:OWNER:\s+(.+)$`)
)

var keywordStatus = map[string]model.Status{
	"TODO":    model.StatusTodo,
	"STARTED": model.StatusInProgress,
	"WAITING": model.StatusBacklog,
	"REWORK":  model.StatusRework,
	"DONE":    model.StatusCompleted,
}

var cookiePriority = map[string]model.Priority{
	"A": model.PriorityHigh,
	"B": model.PriorityMedium,
	"C": model.PriorityLow,
}

// parseFile parses an Org-mode file and returns a slice of tasks.
func parseFile(filePath string) ([]model.Task, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	tasks, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return tasks, nil
}

// ParseFiles parses multiple Org-mode files and returns a slice of tasks.
func ParseFiles(filePaths []string) ([]model.Task, error) {
	var allTasks []model.Task
	for _, filePath := range filePaths {
		tasks, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		allTasks = append(allTasks, tasks...)
	}
	return allTasks, nil
}

// Parse reads task headlines with their planning line and property drawer.
// Headlines without an :ID: property are skipped so that re-imports update
// the same tasks. The "critical" tag raises the priority to critical.
func Parse(r io.Reader) ([]model.Task, error) {
	scanner := bufio.NewScanner(r)
	var tasks []model.Task
	var current *model.Task

	flush := func() {
		if current != nil && current.ID != "" && current.Title != "" {
			if current.Status != model.StatusCompleted {
				current.End = model.Unfinished()
			}
			tasks = append(tasks, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "*") {
			flush()
			matches := headlineRegex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			current = &model.Task{
				Status:   keywordStatus[matches[1]],
				Priority: model.PriorityMedium,
				Title:    strings.TrimSpace(matches[3]),
			}
			if p, ok := cookiePriority[matches[2]]; ok {
				current.Priority = p
			}
			for _, tag := range strings.Split(strings.Trim(matches[4], ":"), ":") {
				if strings.EqualFold(tag, "critical") {
					current.Priority = model.PriorityCritical
				}
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			current.Deadline, _ = model.ParseDate(m[1])
		}
		if m := scheduleRegex.FindStringSubmatch(line); m != nil {
			current.Start, _ = model.ParseDate(m[1])
		}
		if m := closedRegex.FindStringSubmatch(line); m != nil {
			if d, err := model.ParseDate(m[1]); err == nil {
				current.End = model.FinishedOn(d)
			}
		}
		if m := idRegex.FindStringSubmatch(line); m != nil {
			current.ID = m[1]
		}
		if m := ownerRegex.FindStringSubmatch(line); m != nil {
			current.Owner = strings.TrimSpace(m[1])
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FilterTasks keeps the tasks owned by owner (case-insensitive).
func FilterTasks(tasks []model.Task, owner string) []model.Task {
	var filteredTasks []model.Task
	for _, task := range tasks {
		if strings.EqualFold(task.Owner, owner) {
			filteredTasks = append(filteredTasks, task)
		}
	}
	return filteredTasks
}
