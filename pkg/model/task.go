package model

import "time"

type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusRework     Status = "rework"
)

// Valid reports whether s is one of the known task statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusCompleted, StatusRework:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is one row of the project tracker. DurationDays, DelayDays and
// MetDeadline are derived from the dates (see package workdays) but are kept
// on the record because the editor can override them.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Owner       string   `json:"owner"`
	Description string   `json:"description,omitempty"`
	Start       Date     `json:"start"`
	End         Finish   `json:"end"`
	Deadline    Date     `json:"deadline"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`

	// Accounting
	DurationDays int  `json:"duration_days"`
	DelayDays    int  `json:"delay_days"`
	MetDeadline  bool `json:"met_deadline"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Completed reports whether the task is in the completed status.
func (t *Task) Completed() bool {
	return t != nil && t.Status == StatusCompleted
}

// Player is a person tasks are assigned to and XP is credited to.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
