package taskwarrior

import (
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

func TestParseTask(t *testing.T) {
	input := `{
		"uuid": "f45a05b3-c12e-42e5-9c9c-333333333333",
		"description": "Buy milk",
		"status": "pending",
		"due": "20230101T120000Z",
		"project": "Groceries",
		"tags": ["buy", "food"],
		"annotations": [
			{"entry": "20230101T120500Z", "description": "Don't forget almond milk"}
		]
	}`

	client := NewClient()
	task, err := client.ParseTask(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTask failed: %v", err)
	}

	if task.UUID != "f45a05b3-c12e-42e5-9c9c-333333333333" {
		t.Errorf("Expected UUID f45a05b3-c12e-42e5-9c9c-333333333333, got %s", task.UUID)
	}
	if task.Description != "Buy milk" {
		t.Errorf("Expected Description 'Buy milk', got '%s'", task.Description)
	}
	if task.Project != "Groceries" {
		t.Errorf("Expected Project 'Groceries', got '%s'", task.Project)
	}
	if len(task.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(task.Tags))
	}
	if len(task.Annotations) != 1 {
		t.Errorf("Expected 1 annotation, got %d", len(task.Annotations))
	}
	expectedDue, _ := time.Parse(time.RFC3339, "2023-01-01T12:00:00Z")
	if !task.Due.Time.Equal(expectedDue) {
		t.Errorf("Expected Due %v, got %v", expectedDue, task.Due.Time)
	}
}

const hookOld = `{"uuid":"a1","description":"Implement feature X","status":"pending","due":"20250110T170000Z","start":"20250102T090000Z","owner":"gabriel","priority":"H"}`
const hookNew = `{"uuid":"a1","description":"Implement feature X","status":"completed","due":"20250110T170000Z","start":"20250102T090000Z","end":"20250109T150000Z","owner":"gabriel","priority":"H"}`

func TestHookInput(t *testing.T) {
	client := NewClient()
	tasks, err := client.ParseTasks(strings.NewReader(hookOld + "\n" + hookNew + "\n"))
	if err != nil {
		t.Fatalf("ParseTasks failed: %v", err)
	}
	prev, next, err := HookInput(tasks)
	if err != nil {
		t.Fatalf("HookInput failed: %v", err)
	}
	if prev == nil || prev.Status != PENDING {
		t.Fatalf("Expected pending previous task, got %+v", prev)
	}
	if next.Status != COMPLETED {
		t.Errorf("Expected completed new task, got %s", next.Status)
	}

	prev, _, err = HookInput(tasks[1:])
	if err != nil || prev != nil {
		t.Errorf("on-add input should have no previous task, got %+v, %v", prev, err)
	}
	if _, _, err := HookInput(nil); err == nil {
		t.Error("Expected an error for empty hook input")
	}
}

func TestToTask(t *testing.T) {
	client := NewClient()
	tasks, err := client.ParseTasks(strings.NewReader(hookOld + "\n\n" + hookNew))
	if err != nil {
		t.Fatalf("ParseTasks failed: %v", err)
	}

	old, ok := ToTask(tasks[0], "nobody")
	if !ok {
		t.Fatal("Expected pending task to map")
	}
	if old.Status != model.StatusInProgress {
		t.Errorf("Expected started task to be in progress, got %s", old.Status)
	}
	if old.End.Finished() {
		t.Error("Expected pending task to be unfinished")
	}

	done, _ := ToTask(tasks[1], "nobody")
	if done.Status != model.StatusCompleted {
		t.Errorf("Expected completed, got %s", done.Status)
	}
	if day, ok := done.End.Day(); !ok || day.String() != "2025-01-09" {
		t.Errorf("Expected end 2025-01-09, got %s", done.End)
	}
	if done.Deadline.String() != "2025-01-10" || done.Start.String() != "2025-01-02" {
		t.Errorf("Unexpected dates: start %s deadline %s", done.Start, done.Deadline)
	}
	if done.Owner != "gabriel" || done.Priority != model.PriorityHigh || done.ID != "a1" {
		t.Errorf("Unexpected mapping: %+v", done)
	}
}

func TestToTaskDefaults(t *testing.T) {
	tw := Task{UUID: "b2", Description: "Fix login", Status: WAITING, Tags: []string{"critical"}}
	task, ok := ToTask(tw, "ana")
	if !ok {
		t.Fatal("Expected waiting task to map")
	}
	if task.Owner != "ana" {
		t.Errorf("Expected default owner, got %s", task.Owner)
	}
	if task.Status != model.StatusBacklog || task.Priority != model.PriorityCritical {
		t.Errorf("Unexpected status/priority: %s/%s", task.Status, task.Priority)
	}

	tw.Status = PENDING
	tw.Tags = []string{"rework"}
	if task, _ := ToTask(tw, "ana"); task.Status != model.StatusRework {
		t.Errorf("Expected rework, got %s", task.Status)
	}

	tw.Status = DELETED
	if _, ok := ToTask(tw, "ana"); ok {
		t.Error("Expected deleted task to be skipped")
	}
}

func TestParseTasksReportsLine(t *testing.T) {
	client := NewClient()
	_, err := client.ParseTasks(strings.NewReader(hookOld + "\n{broken\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected an error on line 2, got %v", err)
	}
}

func TestParseLinesKeepsRawTask(t *testing.T) {
	line := `{"uuid":"b1","description":"x","status":"pending","depends":"c2","estimate":"3h"}`
	client := NewClient()
	tasks, raw, err := client.ParseLines(strings.NewReader(hookOld + "\n\n  " + line + "  \n"))
	if err != nil {
		t.Fatalf("ParseLines failed: %v", err)
	}
	if len(tasks) != 2 || len(raw) != 2 {
		t.Fatalf("Expected 2 tasks and 2 lines, got %d and %d", len(tasks), len(raw))
	}
	if string(raw[0]) != hookOld {
		t.Errorf("Expected first line %s, got %s", hookOld, raw[0])
	}
	if string(raw[1]) != line {
		t.Errorf("Expected second line %s, got %s", line, raw[1])
	}
	if tasks[1].UUID != "b1" {
		t.Errorf("Expected uuid b1, got %s", tasks[1].UUID)
	}
}
