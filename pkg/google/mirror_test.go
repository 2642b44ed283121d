package google

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskquest/pkg/colors"
	"github.com/harrisonrobin/taskquest/pkg/index"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/overdue"
)

// fakeEvents is an in-memory calendar.
type fakeEvents struct {
	events  map[string]*calendar.Event
	seq     int
	patches int
}

func newFakeEvents() *fakeEvents { return &fakeEvents{events: map[string]*calendar.Event{}} }

func (f *fakeEvents) GetEvent(_ context.Context, id string) (*calendar.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) InsertEvent(_ context.Context, e *calendar.Event) (*calendar.Event, error) {
	f.seq++
	cp := *e
	cp.Id = fmt.Sprintf("evt-%d", f.seq)
	f.events[cp.Id] = &cp
	return &cp, nil
}

func (f *fakeEvents) PatchEvent(_ context.Context, id string, p *calendar.Event) (*calendar.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	f.patches++
	if p.Summary != "" {
		e.Summary = p.Summary
	}
	if p.Description != "" {
		e.Description = p.Description
	}
	if p.ColorId != "" {
		e.ColorId = p.ColorId
	}
	if p.Start != nil {
		e.Start, e.End = p.Start, p.End
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) DeleteEvent(_ context.Context, id string) error {
	delete(f.events, id)
	return nil
}

func (f *fakeEvents) GetEventByTaskID(_ context.Context, taskID string) (*calendar.Event, error) {
	for _, e := range f.events {
		if e.ExtendedProperties != nil && e.ExtendedProperties.Private[TaskIDProperty] == taskID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func newTestMirror(t *testing.T, events Events) *Mirror {
	t.Helper()
	dir := t.TempDir()
	idx, err := index.NewEventIndex(dir)
	require.NoError(t, err)
	table, err := overdue.NewTable(dir)
	require.NoError(t, err)
	cache, err := colors.NewColorCache(dir)
	require.NoError(t, err)
	m := NewMirror(events, idx, table, cache, nil)
	m.now = func() time.Time { return now }
	return m
}

func TestMirrorSyncLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeEvents()
	m := newTestMirror(t, fake)

	task := sampleTask()
	undated := model.Task{ID: "x", Title: "someday", Status: model.StatusBacklog}
	require.NoError(t, m.Sync(ctx, []model.Task{task, undated}))
	require.Len(t, fake.events, 1)
	eventID := m.index.Get(task.ID)
	require.NotEmpty(t, eventID)
	assert.True(t, m.overdue.Has(task.ID))

	// Unchanged task: no patch.
	require.NoError(t, m.Sync(ctx, []model.Task{task}))
	assert.Zero(t, fake.patches)

	task.Status = model.StatusCompleted
	task.End = model.FinishedOn(model.MustDate("2025-01-09"))
	_, err := m.SyncTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "✓ Test Task", fake.events[eventID].Summary)
	assert.False(t, m.overdue.Has(task.ID))

	require.NoError(t, m.Remove(ctx, task.ID))
	assert.Empty(t, fake.events)
	assert.Empty(t, m.index.Get(task.ID))
}

func TestMirrorSweep(t *testing.T) {
	ctx := context.Background()
	fake := newFakeEvents()
	m := newTestMirror(t, fake)

	task := sampleTask()
	task.Status = model.StatusTodo
	_, err := m.SyncTask(ctx, task)
	require.NoError(t, err)

	m.now = func() time.Time { return now.AddDate(0, 0, 5) }
	assert.Equal(t, 1, m.Sweep(ctx))
	assert.Equal(t, "! Test Task", fake.events[m.index.Get(task.ID)].Summary)
	assert.Zero(t, m.Sweep(ctx))
}

func TestMirrorPrune(t *testing.T) {
	ctx := context.Background()
	fake := newFakeEvents()
	m := newTestMirror(t, fake)

	keep := sampleTask()
	gone := sampleTask()
	gone.ID = "gone"
	require.NoError(t, m.Sync(ctx, []model.Task{keep, gone}))
	require.Len(t, fake.events, 2)

	n, err := m.Prune(ctx, []model.Task{keep})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, fake.events, 1)
	assert.Empty(t, m.index.Get("gone"))
	assert.NotEmpty(t, m.index.Get(keep.ID))
}
