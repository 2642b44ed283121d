package google

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

// TaskIDProperty is the private extended property holding the task id.
const TaskIDProperty = "taskquest_id"

const (
	completedPrefix  = "✓"
	inProgressPrefix = "‣"
	overduePrefix    = "!"
)

// Summary is the event title: the task title behind a state prefix.
func Summary(task model.Task, now time.Time) string {
	prefix := ""
	switch {
	case task.Status == model.StatusCompleted:
		prefix = completedPrefix
	case task.Deadline.IsSet() && task.Deadline.Before(model.Day(now).Time):
		prefix = overduePrefix
	case task.Status == model.StatusInProgress || task.Status == model.StatusRework:
		prefix = inProgressPrefix
	}
	if prefix == "" {
		return task.Title
	}
	return fmt.Sprintf("%s %s", prefix, task.Title)
}

// Overdue marks a mirrored summary as overdue.
func Overdue(summary string) string {
	summary = strings.TrimPrefix(strings.TrimPrefix(summary, inProgressPrefix+" "), overduePrefix+" ")
	return overduePrefix + " " + summary
}

// ErrUndated marks a task with neither a deadline nor an end date; it has no
// place on the calendar.
var ErrUndated = errors.New("task has neither a deadline nor an end date")

// ConvertTaskToCalendarEvent builds the all-day event mirroring task: on the
// finishing day once completed, else on the deadline.
func ConvertTaskToCalendarEvent(task model.Task, colorID string, now time.Time) (*calendar.Event, error) {
	day, finished := task.End.Day()
	if !finished {
		day = task.Deadline
	}
	if !day.IsSet() {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrUndated)
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "Status: %s\n", task.Status)
	fmt.Fprintf(&desc, "Priority: %s\n", task.Priority)
	if task.Owner != "" {
		fmt.Fprintf(&desc, "Owner: %s\n", task.Owner)
	}
	fmt.Fprintf(&desc, "ID: %s\n", task.ID)

	desc.WriteString("\nAccounting:\n")
	if task.Start.IsSet() {
		fmt.Fprintf(&desc, "• started: %s\n", task.Start)
	}
	if task.Deadline.IsSet() {
		fmt.Fprintf(&desc, "• deadline: %s\n", task.Deadline)
	}
	if finished {
		fmt.Fprintf(&desc, "• finished: %s\n", task.End)
		fmt.Fprintf(&desc, "• duration: %d business days\n", task.DurationDays)
		switch {
		case task.DelayDays > 0:
			fmt.Fprintf(&desc, "• late by: %d business days\n", task.DelayDays)
		case task.DelayDays < 0:
			fmt.Fprintf(&desc, "• early by: %d business days\n", -task.DelayDays)
		}
	}

	if task.Description != "" {
		desc.WriteString("\nNotes:\n")
		for _, line := range strings.Split(task.Description, "\n") {
			fmt.Fprintf(&desc, "‣ %s\n", line)
		}
	}

	return &calendar.Event{
		Summary:     Summary(task, now),
		ColorId:     colorID,
		Start:       &calendar.EventDateTime{Date: day.String()},
		End:         &calendar.EventDateTime{Date: model.Day(day.AddDate(0, 0, 1)).String()},
		Description: desc.String(),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: task.ID},
		},
	}, nil
}

func eventDay(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.Date != "" {
		return dt.Date
	}
	if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
		return t.UTC().Format(model.DateLayout)
	}
	return dt.DateTime
}

// EventNeedsUpdate returns a patch with the fields of target that differ
// from existing, or nil when the event is up to date.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if eventDay(existing.Start) != eventDay(target.Start) || eventDay(existing.End) != eventDay(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}
