// Package workdays derives the business-day accounting fields of a task.
package workdays

import (
	"time"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Between counts business days in the inclusive range [from, to]. It returns
// 0 when to is before from.
func Between(from, to model.Date) int {
	if !from.IsSet() || !to.IsSet() || to.Before(from.Time) {
		return 0
	}
	n := 0
	for d := from.Time; !d.After(to.Time); d = d.AddDate(0, 0, 1) {
		if !isWeekend(d) {
			n++
		}
	}
	return n
}

// Delay is the signed number of business days from deadline to done:
// positive when late, negative when early, zero on the deadline day.
func Delay(deadline, done model.Date) int {
	if !deadline.IsSet() || !done.IsSet() {
		return 0
	}
	switch {
	case done.After(deadline.Time):
		return Between(model.Day(deadline.AddDate(0, 0, 1)), done)
	case done.Before(deadline.Time):
		return -Between(model.Day(done.AddDate(0, 0, 1)), deadline)
	}
	return 0
}

// Apply recomputes DurationDays, DelayDays and MetDeadline. Unfinished tasks
// are measured against today. Tasks without a deadline keep their fields.
func Apply(t *model.Task, now time.Time) {
	if !t.Deadline.IsSet() {
		return
	}
	today := model.Day(now)
	done, finished := t.End.Day()
	if !finished {
		done = today
	}

	if t.Start.IsSet() {
		t.DurationDays = Between(t.Start, done)
	}

	delay := Delay(t.Deadline, done)
	if !finished && delay < 0 {
		// Not late yet; an unfinished task earns no "early" credit.
		delay = 0
	}
	t.DelayDays = delay
	t.MetDeadline = !done.After(t.Deadline.Time)
}
