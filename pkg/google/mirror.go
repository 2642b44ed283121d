package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskquest/pkg/colors"
	"github.com/harrisonrobin/taskquest/pkg/index"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/overdue"
)

// Events is the part of the Calendar API the mirror uses.
type Events interface {
	GetEvent(ctx context.Context, eventID string) (*calendar.Event, error)
	InsertEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
	PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error)
}

// Mirror keeps one calendar event per dated task. The index, overdue table
// and colour cache are optional.
type Mirror struct {
	events  Events
	index   *index.EventIndex
	overdue *overdue.Table
	colors  *colors.ColorCache
	logger  *zap.Logger
	now     func() time.Time
}

func NewMirror(events Events, idx *index.EventIndex, table *overdue.Table, cache *colors.ColorCache, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		events:  events,
		index:   idx,
		overdue: table,
		colors:  cache,
		logger:  logger.Named("calendar"),
		now:     time.Now,
	}
}

func (m *Mirror) find(ctx context.Context, taskID string) (*calendar.Event, error) {
	if m.index != nil {
		if eventID := m.index.Get(taskID); eventID != "" {
			if existing, err := m.events.GetEvent(ctx, eventID); err == nil && existing != nil {
				return existing, nil
			}
		}
	}
	existing, err := m.events.GetEventByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}
	return existing, nil
}

// SyncTask creates the task's event or patches the fields that changed.
func (m *Mirror) SyncTask(ctx context.Context, task model.Task) (*calendar.Event, error) {
	colorID := colors.NoOwnerColor
	if m.colors != nil {
		colorID = m.colors.GetColorID(task.Owner)
	}
	now := m.now()
	event, err := ConvertTaskToCalendarEvent(task, colorID, now)
	if err != nil {
		return nil, err
	}

	existing, err := m.find(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	var synced *calendar.Event
	switch {
	case existing == nil:
		synced, err = m.events.InsertEvent(ctx, event)
	default:
		synced = existing
		if patch := EventNeedsUpdate(existing, event); patch != nil {
			synced, err = m.events.PatchEvent(ctx, existing.Id, patch)
		}
	}
	if err != nil {
		return nil, err
	}

	if m.index != nil {
		m.index.Set(task.ID, synced.Id)
	}
	if m.overdue != nil {
		if task.Completed() || !task.Deadline.IsSet() {
			m.overdue.Remove(task.ID)
		} else {
			// Overdue from the day after the deadline.
			due := task.Deadline.AddDate(0, 0, 1)
			m.overdue.Update(task.ID, synced.Id, event.Summary, due, now)
		}
	}
	return synced, nil
}

// Remove deletes the task's event, if any.
func (m *Mirror) Remove(ctx context.Context, taskID string) error {
	existing, err := m.find(ctx, taskID)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := m.events.DeleteEvent(ctx, existing.Id); err != nil {
			return fmt.Errorf("deleting event %s: %w", existing.Id, err)
		}
	}
	if m.index != nil {
		m.index.Remove(taskID)
	}
	if m.overdue != nil {
		m.overdue.Remove(taskID)
	}
	return nil
}

// Prune deletes the events of indexed tasks that are no longer in live, e.g.
// after the tasks were removed from the store.
func (m *Mirror) Prune(ctx context.Context, live []model.Task) (int, error) {
	if m.index == nil {
		return 0, nil
	}
	ids := make([]string, len(live))
	for i, t := range live {
		ids[i] = t.ID
	}
	var errs []error
	n := 0
	for _, id := range m.index.Stale(ids) {
		if err := m.Remove(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", id, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Sweep marks the events of tasks whose deadline passed since the last sync.
func (m *Mirror) Sweep(ctx context.Context) int {
	if m.overdue == nil {
		return 0
	}
	n := 0
	for _, e := range m.overdue.Sweep(m.now()) {
		if _, err := m.events.PatchEvent(ctx, e.EventID, &calendar.Event{Summary: Overdue(e.Summary)}); err != nil {
			m.logger.Warn("sweep: patching event", zap.String("event", e.EventID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Sync sweeps, then mirrors every dated task, and saves the local state.
func (m *Mirror) Sync(ctx context.Context, tasks []model.Task) error {
	swept := m.Sweep(ctx)
	var errs []error
	synced := 0
	for _, t := range tasks {
		if _, err := m.SyncTask(ctx, t); err != nil {
			if errors.Is(err, ErrUndated) {
				continue
			}
			errs = append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			continue
		}
		synced++
	}
	m.logger.Info("calendar synced", zap.Int("tasks", synced), zap.Int("overdue", swept), zap.Int("failed", len(errs)))
	if err := m.Save(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Mirror) Save() error {
	var errs []error
	if m.index != nil {
		errs = append(errs, m.index.Save())
	}
	if m.overdue != nil {
		errs = append(errs, m.overdue.Save())
	}
	if m.colors != nil {
		errs = append(errs, m.colors.Save())
	}
	return errors.Join(errs...)
}
