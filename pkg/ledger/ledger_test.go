package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/settings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore keeps entries in insertion order.
type memStore struct {
	entries   []model.XPEntry
	appendErr error
	queryErr  error
}

func (m *memStore) AppendEntry(_ context.Context, e model.XPEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) EntriesByPlayer(_ context.Context, playerID string) ([]model.XPEntry, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []model.XPEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].PlayerID == playerID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

var statuses = []model.Status{
	model.StatusBacklog, model.StatusTodo, model.StatusInProgress, model.StatusCompleted, model.StatusRework,
}

func baseTask() model.Task {
	return model.Task{
		ID:       "t1",
		Title:    "Implement feature X",
		Owner:    "gabriel",
		Start:    model.MustDate("2025-01-01"),
		Deadline: model.MustDate("2025-01-10"),
		Status:   model.StatusInProgress,
		Priority: model.PriorityMedium,
	}
}

func completed(delay int, met bool) model.Task {
	t := baseTask()
	t.Status = model.StatusCompleted
	t.End = model.FinishedOn(model.MustDate("2025-01-09"))
	t.DelayDays = delay
	t.MetDeadline = met
	return t
}

func TestEvaluateFiresOnCompletionEdge(t *testing.T) {
	p := DefaultPolicy()
	next := completed(0, true)

	var prevs []*model.Task
	prevs = append(prevs, nil)
	for _, s := range statuses {
		if s == model.StatusCompleted {
			continue
		}
		prev := baseTask()
		prev.Status = s
		prevs = append(prevs, &prev)
	}

	for _, prev := range prevs {
		for _, delay := range []int{-5, -1, 0} {
			next.DelayDays = delay
			award, ok := p.Evaluate(prev, next)
			require.True(t, ok)
			assert.Greater(t, award.XP, 0)
		}
	}
}

func TestEvaluateNoEdge(t *testing.T) {
	p := DefaultPolicy()

	// Already completed: never re-fires even when other fields changed.
	prev := completed(0, true)
	next := completed(3, false)
	next.Title = "renamed"
	_, ok := p.Evaluate(&prev, next)
	assert.False(t, ok)

	// Moves among non-completed states.
	for _, from := range statuses {
		for _, to := range statuses {
			if to == model.StatusCompleted {
				continue
			}
			prev, next := baseTask(), baseTask()
			prev.Status, next.Status = from, to
			_, ok := p.Evaluate(&prev, next)
			assert.False(t, ok, "%s -> %s", from, to)
		}
	}
}

func TestEvaluateMalformedSnapshot(t *testing.T) {
	p := DefaultPolicy()

	noEnd := completed(0, true)
	noEnd.End = model.Unfinished()
	_, ok := p.Evaluate(nil, noEnd)
	assert.False(t, ok)

	noDeadline := completed(0, true)
	noDeadline.Deadline = model.Date{}
	_, ok = p.Evaluate(nil, noDeadline)
	assert.False(t, ok)

	empty := model.Task{Status: model.StatusCompleted}
	assert.NotPanics(t, func() { p.Evaluate(nil, empty) })
}

func TestEvaluateAmounts(t *testing.T) {
	p := DefaultPolicy()

	early, _ := p.Evaluate(nil, completed(-2, true))
	assert.Equal(t, Early, early.Timeliness)
	assert.Equal(t, 110, early.XP)

	onTime, _ := p.Evaluate(nil, completed(0, true))
	assert.Equal(t, OnTime, onTime.Timeliness)
	assert.Equal(t, 100, onTime.XP)

	late1, _ := p.Evaluate(nil, completed(1, false))
	assert.Equal(t, Late, late1.Timeliness)
	assert.Equal(t, 50, late1.XP)

	late3, _ := p.Evaluate(nil, completed(3, false))
	assert.Equal(t, 40, late3.XP)

	veryLate, ok := p.Evaluate(nil, completed(40, false))
	require.True(t, ok, "late completions still produce an entry")
	assert.Equal(t, 0, veryLate.XP)

	rework := baseTask()
	rework.Status = model.StatusRework
	again, _ := p.Evaluate(&rework, completed(-1, true))
	assert.True(t, again.Rework)
	assert.Equal(t, 40, again.XP)
	assert.Contains(t, again.Description(), "after rework")
}

func TestEvaluateMonotonic(t *testing.T) {
	p := DefaultPolicy()
	prevXP := -1
	for delay := 30; delay >= -3; delay-- {
		award, ok := p.Evaluate(nil, completed(delay, delay <= 0))
		require.True(t, ok)
		assert.GreaterOrEqual(t, award.XP, prevXP, "delay %d", delay)
		prevXP = award.XP
	}
}

func TestPolicyFromNormalizes(t *testing.T) {
	p := PolicyFrom(settings.Productivity{Early: 10, OnTime: 0, Late: 500, Rework: -1, LatePenaltyPerDay: -3})
	assert.Equal(t, 100, p.OnTime)
	assert.Equal(t, 100, p.Early)
	assert.Equal(t, 100, p.Late)
	assert.Equal(t, 40, p.Rework)
	assert.Equal(t, 0, p.LatePenaltyPerDay)

	award, ok := p.Evaluate(nil, completed(0, true))
	require.True(t, ok)
	assert.Greater(t, award.XP, 0)
}

func TestEvaluateZeroPolicy(t *testing.T) {
	var p Policy
	award, ok := p.Evaluate(nil, completed(0, true))
	require.True(t, ok)
	assert.Equal(t, 100, award.XP)

	award, ok = p.Evaluate(nil, completed(-1, true))
	require.True(t, ok)
	assert.Equal(t, 100, award.XP)

	award, ok = Policy{OnTime: -5, Early: 7}.Evaluate(nil, completed(0, true))
	require.True(t, ok)
	assert.Greater(t, award.XP, 0)
}

func newTestLedger(store Store) *Ledger {
	now := time.Date(2025, 1, 9, 18, 0, 0, 0, time.UTC)
	return New(store, WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
}

func TestRecordScenario(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	l := newTestLedger(store)

	inProgress := baseTask()
	e, err := l.Record(ctx, "u1", nil, inProgress)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Len(t, l.History(ctx, "u1"), 0)

	done := completed(-1, true)
	e, err = l.Record(ctx, "u1", &inProgress, done)
	require.NoError(t, err)
	require.NotNil(t, e)
	hist := l.History(ctx, "u1")
	require.Len(t, hist, 1)
	assert.Equal(t, model.SourceTask, hist[0].Source)
	assert.Greater(t, hist[0].XP, 0)
	assert.Equal(t, "t1", hist[0].TaskID)
	assert.NotEmpty(t, hist[0].ID)
	assert.True(t, strings.Contains(strings.ToLower(hist[0].Description), "task"))

	e, err = l.Record(ctx, "u1", &done, done)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Len(t, l.History(ctx, "u1"), 1)
}

func TestHistoryOrderAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	l := newTestLedger(store)

	var ids []string
	for i := 0; i < 4; i++ {
		e := model.XPEntry{PlayerID: "u1", XP: i, Source: model.SourceManual, Description: "bonus"}
		require.NoError(t, l.Append(ctx, &e))
		ids = append(ids, e.ID)
	}
	require.NoError(t, l.Append(ctx, &model.XPEntry{PlayerID: "u2", XP: 9, Source: model.SourceManual}))

	hist := l.History(ctx, "u1")
	require.Len(t, hist, 4)
	for i := 1; i < len(hist); i++ {
		assert.False(t, hist[i].Date.After(hist[i-1].Date))
	}
	seen := map[string]int{}
	for _, e := range hist {
		seen[e.ID]++
	}
	for _, id := range ids {
		assert.Equal(t, 1, seen[id])
	}

	assert.Empty(t, l.History(ctx, "nobody"))
	assert.NotNil(t, l.History(ctx, "nobody"))
}

func TestRecordAppendFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	l := newTestLedger(&memStore{appendErr: boom})

	e, err := l.Record(ctx, "u1", nil, completed(0, true))
	assert.Nil(t, e)
	assert.ErrorIs(t, err, boom)
}

func TestHistoryQueryFailureDegrades(t *testing.T) {
	l := newTestLedger(&memStore{queryErr: errors.New("timeout")})
	hist := l.History(context.Background(), "u1")
	assert.NotNil(t, hist)
	assert.Empty(t, hist)
}

func TestAppendRequiresPlayer(t *testing.T) {
	l := newTestLedger(&memStore{})
	assert.Error(t, l.Append(context.Background(), &model.XPEntry{XP: 1}))
}
