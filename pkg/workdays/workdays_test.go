package workdays

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

func TestBetween(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	assert.Equal(t, 7, Between(model.MustDate("2025-01-01"), model.MustDate("2025-01-09")))
	assert.Equal(t, 1, Between(model.MustDate("2025-01-06"), model.MustDate("2025-01-06")))
	assert.Equal(t, 0, Between(model.MustDate("2025-01-04"), model.MustDate("2025-01-05")))
	assert.Equal(t, 0, Between(model.MustDate("2025-01-09"), model.MustDate("2025-01-01")))
	assert.Equal(t, 0, Between(model.Date{}, model.MustDate("2025-01-01")))
}

func TestDelay(t *testing.T) {
	deadline := model.MustDate("2025-01-10") // Friday

	tests := []struct {
		done string
		want int
	}{
		{"2025-01-10", 0},
		{"2025-01-09", -1},
		{"2025-01-06", -4},
		{"2025-01-11", 0}, // Saturday after a Friday deadline
		{"2025-01-13", 1},
		{"2025-01-17", 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Delay(deadline, model.MustDate(tt.done)), "done %s", tt.done)
	}
	assert.Equal(t, 0, Delay(model.Date{}, model.MustDate("2025-01-13")))
}

func TestApply(t *testing.T) {
	now := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

	done := &model.Task{
		Start:    model.MustDate("2025-01-01"),
		Deadline: model.MustDate("2025-01-10"),
		End:      model.FinishedOn(model.MustDate("2025-01-09")),
		Status:   model.StatusCompleted,
	}
	Apply(done, now)
	assert.Equal(t, 7, done.DurationDays)
	assert.Equal(t, -1, done.DelayDays)
	assert.True(t, done.MetDeadline)

	late := &model.Task{
		Start:    model.MustDate("2025-01-01"),
		Deadline: model.MustDate("2025-01-10"),
		Status:   model.StatusInProgress,
	}
	Apply(late, now)
	assert.Equal(t, 14, late.DurationDays)
	assert.Equal(t, 6, late.DelayDays)
	assert.False(t, late.MetDeadline)

	pending := &model.Task{Deadline: model.MustDate("2025-02-01"), Status: model.StatusTodo}
	Apply(pending, now)
	assert.Equal(t, 0, pending.DelayDays)
	assert.True(t, pending.MetDeadline)

	noDeadline := &model.Task{DelayDays: 3, MetDeadline: true}
	Apply(noDeadline, now)
	assert.Equal(t, 3, noDeadline.DelayDays)
	assert.True(t, noDeadline.MetDeadline)
}
