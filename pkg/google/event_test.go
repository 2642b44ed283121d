package google

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

var now = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

func sampleTask() model.Task {
	return model.Task{
		ID:          "12345678-1234-1234-1234-123456789012",
		Title:       "Test Task",
		Owner:       "gabriel",
		Description: "Note 1",
		Start:       model.MustDate("2025-01-02"),
		Deadline:    model.MustDate("2025-01-10"),
		Status:      model.StatusInProgress,
		Priority:    model.PriorityHigh,
	}
}

func TestConvertTaskToCalendarEvent(t *testing.T) {
	task := sampleTask()
	event, err := ConvertTaskToCalendarEvent(task, "3", now)
	if err != nil {
		t.Fatalf("ConvertTaskToCalendarEvent failed: %v", err)
	}

	if event.ExtendedProperties == nil || event.ExtendedProperties.Private == nil {
		t.Fatal("ExtendedProperties or Private map is nil")
	}
	if val := event.ExtendedProperties.Private[TaskIDProperty]; val != task.ID {
		t.Errorf("Expected %s %s, got %v", TaskIDProperty, task.ID, val)
	}
	if event.Summary != "‣ Test Task" {
		t.Errorf("Expected in-progress summary, got %q", event.Summary)
	}
	if event.Start.Date != "2025-01-10" || event.End.Date != "2025-01-11" {
		t.Errorf("Expected all-day event on the deadline, got %s..%s", event.Start.Date, event.End.Date)
	}
	if !strings.Contains(event.Description, "Accounting:") {
		t.Errorf("Expected description to contain Accounting section, got: %s", event.Description)
	}
	if !strings.Contains(event.Description, "Note 1") {
		t.Errorf("Expected description to contain 'Note 1', got: %s", event.Description)
	}
}

func TestConvertCompletedAndOverdue(t *testing.T) {
	task := sampleTask()
	task.Status = model.StatusCompleted
	task.End = model.FinishedOn(model.MustDate("2025-01-13"))
	task.DelayDays = 1

	event, err := ConvertTaskToCalendarEvent(task, "3", now)
	if err != nil {
		t.Fatal(err)
	}
	if event.Summary != "✓ Test Task" || event.Start.Date != "2025-01-13" {
		t.Errorf("Unexpected completed event: %q on %s", event.Summary, event.Start.Date)
	}
	if !strings.Contains(event.Description, "late by: 1") {
		t.Errorf("Expected delay in accounting, got: %s", event.Description)
	}

	task = sampleTask()
	task.Status = model.StatusTodo
	if got := Summary(task, now.AddDate(0, 0, 3)); got != "! Test Task" {
		t.Errorf("Expected overdue summary, got %q", got)
	}
	if got := Overdue("‣ Test Task"); got != "! Test Task" {
		t.Errorf("Expected overdue marker to replace in-progress marker, got %q", got)
	}

	task.Deadline = model.Date{}
	if _, err := ConvertTaskToCalendarEvent(task, "3", now); err == nil {
		t.Error("Expected an error for a task without dates")
	}
}

func TestEventNeedsUpdate(t *testing.T) {
	target, _ := ConvertTaskToCalendarEvent(sampleTask(), "3", now)
	same := *target
	if patch := EventNeedsUpdate(&same, target); patch != nil {
		t.Errorf("Expected no patch, got %+v", patch)
	}

	existing := *target
	existing.Summary = "Test Task"
	existing.Start = &calendar.EventDateTime{DateTime: "2025-01-09T10:00:00Z"}
	patch := EventNeedsUpdate(&existing, target)
	if patch == nil {
		t.Fatal("Expected a patch")
	}
	if patch.Summary != target.Summary || patch.Start == nil || patch.Description != "" {
		t.Errorf("Unexpected patch: %+v", patch)
	}
}
