package ledger

import (
	"fmt"

	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/settings"
)

type Timeliness string

const (
	Early  Timeliness = "early"
	OnTime Timeliness = "on time"
	Late   Timeliness = "late"
)

// Policy prices a completion. Evaluate normalizes it first, so a literal or
// zero Policy still pays a positive amount for a met deadline.
type Policy struct {
	Early             int
	OnTime            int
	Late              int
	Rework            int
	LatePenaltyPerDay int
}

func DefaultPolicy() Policy {
	return PolicyFrom(settings.DefaultProductivity())
}

// PolicyFrom converts the stored productivity config into a normalized
// Policy.
func PolicyFrom(p settings.Productivity) Policy {
	return Policy{
		Early:             p.Early,
		OnTime:            p.OnTime,
		Late:              p.Late,
		Rework:            p.Rework,
		LatePenaltyPerDay: p.LatePenaltyPerDay,
	}.normalized()
}

// normalized keeps early >= on time > 0, 0 <= late <= on time, rework > 0
// and a non-negative penalty. A zero Policy becomes the on-time default for
// every amount.
func (p Policy) normalized() Policy {
	def := settings.DefaultProductivity()
	if p.OnTime <= 0 {
		p.OnTime = def.OnTime
	}
	if p.Early < p.OnTime {
		p.Early = p.OnTime
	}
	if p.Late < 0 {
		p.Late = 0
	}
	if p.Late > p.OnTime {
		p.Late = p.OnTime
	}
	if p.Rework <= 0 {
		p.Rework = min(def.Rework, p.OnTime)
	}
	if p.LatePenaltyPerDay < 0 {
		p.LatePenaltyPerDay = 0
	}
	return p
}

// Award is the outcome of a qualifying completion transition.
type Award struct {
	TaskID     string
	Title      string
	XP         int
	Timeliness Timeliness
	Rework     bool
}

func (a Award) Description() string {
	desc := fmt.Sprintf("Completed task %q %s", a.Title, a.Timeliness)
	if a.Rework {
		desc += " after rework"
	}
	return desc
}

// Evaluate decides whether the change prev -> next completes the task and
// prices it. prev is nil on the first save. It fires only on the edge into
// completed: a task that was already completed never fires again, whatever
// else changed. A completed snapshot without an end date or a deadline is
// treated as not completing.
func (p Policy) Evaluate(prev *model.Task, next model.Task) (Award, bool) {
	if next.Status != model.StatusCompleted {
		return Award{}, false
	}
	if prev.Completed() {
		return Award{}, false
	}
	if !next.End.Finished() || !next.Deadline.IsSet() {
		return Award{}, false
	}
	p = p.normalized()

	a := Award{TaskID: next.ID, Title: next.Title}
	switch {
	case next.MetDeadline && next.DelayDays < 0:
		a.Timeliness, a.XP = Early, p.Early
	case next.MetDeadline:
		a.Timeliness, a.XP = OnTime, p.OnTime
	default:
		days := max(next.DelayDays, 1)
		a.Timeliness, a.XP = Late, max(0, p.Late-p.LatePenaltyPerDay*(days-1))
	}
	if prev != nil && prev.Status == model.StatusRework {
		a.Rework = true
		a.XP = min(a.XP, p.Rework)
	}
	return a, true
}
