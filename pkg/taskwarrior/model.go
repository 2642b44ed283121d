package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
	RECURRING = "recurring"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, 'Z' indicates UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

func (ct *CustomTime) set() bool {
	return ct != nil && !ct.IsZero()
}

type Annotation struct {
	Description string      `json:"description"`
	Entry       *CustomTime `json:"entry"`
}

type Task struct {
	UUID        string       `json:"uuid"`
	Description string       `json:"description"`
	Due         *CustomTime  `json:"due,omitempty"`
	Scheduled   *CustomTime  `json:"scheduled,omitempty"`
	Status      string       `json:"status"`
	Project     string       `json:"project,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Start       *CustomTime  `json:"start,omitempty"`
	End         *CustomTime  `json:"end,omitempty"`
	// Owner is the "owner" UDA (uda.owner.type=string).
	Owner string `json:"owner,omitempty"`
}

func (t Task) hasTag(tag string) bool {
	for _, tg := range t.Tags {
		if strings.EqualFold(tg, tag) {
			return true
		}
	}
	return false
}

// ToTask maps a Taskwarrior task onto the tracker's task. Deleted and
// recurring template tasks map to false. A task without an owner UDA belongs
// to defaultOwner.
func ToTask(tw Task, defaultOwner string) (model.Task, bool) {
	if tw.UUID == "" || tw.Status == DELETED || tw.Status == RECURRING {
		return model.Task{}, false
	}

	t := model.Task{
		ID:    tw.UUID,
		Title: tw.Description,
		Owner: tw.Owner,
	}
	if t.Owner == "" {
		t.Owner = defaultOwner
	}

	var notes []string
	for _, a := range tw.Annotations {
		notes = append(notes, a.Description)
	}
	t.Description = strings.Join(notes, "\n")

	if tw.Due.set() {
		t.Deadline = model.Day(tw.Due.Time)
	}
	switch {
	case tw.Start.set():
		t.Start = model.Day(tw.Start.Time)
	case tw.Scheduled.set():
		t.Start = model.Day(tw.Scheduled.Time)
	}

	switch {
	case tw.Status == COMPLETED:
		t.Status = model.StatusCompleted
		end := time.Now()
		if tw.End.set() {
			end = tw.End.Time
		}
		t.End = model.FinishedOn(model.Day(end))
	case tw.hasTag("rework"):
		t.Status = model.StatusRework
	case tw.Status == WAITING:
		t.Status = model.StatusBacklog
	case tw.Start.set():
		t.Status = model.StatusInProgress
	default:
		t.Status = model.StatusTodo
	}

	switch {
	case tw.hasTag("critical"):
		t.Priority = model.PriorityCritical
	case tw.Priority == "H":
		t.Priority = model.PriorityHigh
	case tw.Priority == "L":
		t.Priority = model.PriorityLow
	default:
		t.Priority = model.PriorityMedium
	}
	return t, true
}
