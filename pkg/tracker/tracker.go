// Package tracker is the task-save path: it persists task snapshots and feeds
// each old/new pair through the XP ledger and the mission tracker.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/ledger"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/store"
	"github.com/harrisonrobin/taskquest/pkg/workdays"
)

// ErrLedger marks a ledger failure that happened after the tasks themselves
// were saved. The task save is not rolled back.
var ErrLedger = errors.New("xp ledger update failed")

// TaskStore is the subset of store.Store the tracker needs.
type TaskStore interface {
	SaveTasks(ctx context.Context, tasks []model.Task) error
	Tasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error)
	Players(ctx context.Context) ([]model.Player, error)
}

// MissionChecker re-evaluates a player's missions after new awards.
type MissionChecker interface {
	Check(ctx context.Context, playerID string) ([]model.XPEntry, error)
}

type Service struct {
	tasks    TaskStore
	ledger   *ledger.Ledger
	missions MissionChecker
	logger   *zap.Logger
}

func New(tasks TaskStore, l *ledger.Ledger, missions MissionChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tasks: tasks, ledger: l, missions: missions, logger: logger.Named("tracker")}
}

// Result reports what a save did.
type Result struct {
	Tasks  []model.Task    `json:"tasks"`
	Awards []model.XPEntry `json:"awards"`

	// Skipped lists tasks that became completed without an end date or a
	// deadline. They are stored as completed and will not pay later.
	Skipped []string `json:"skipped,omitempty"`
}

type saveOptions struct {
	previous map[string]model.Task
}

type SaveOption func(*saveOptions)

// WithPrevious supplies a snapshot to compare against when the store has no
// earlier version of the task (e.g. the old task of a Taskwarrior hook).
func WithPrevious(prev model.Task) SaveOption {
	return func(o *saveOptions) {
		if prev.ID != "" {
			o.previous[prev.ID] = prev
		}
	}
}

// SaveTasks persists tasks, then records XP for every completion transition.
// A store failure aborts before any XP is recorded. Ledger and mission
// failures are joined and returned wrapped in ErrLedger together with the
// saved result.
func (s *Service) SaveTasks(ctx context.Context, tasks []model.Task, opts ...SaveOption) (Result, error) {
	o := saveOptions{previous: map[string]model.Task{}}
	for _, opt := range opts {
		opt(&o)
	}

	now := s.ledger.Now()
	ids := make([]string, 0, len(tasks))
	for i := range tasks {
		normalize(&tasks[i], now)
		ids = append(ids, tasks[i].ID)
	}

	prevByID := map[string]model.Task{}
	if len(ids) > 0 {
		previous, err := s.tasks.Tasks(ctx, store.TaskFilter{IDs: ids})
		if err != nil {
			return Result{}, fmt.Errorf("reading previous snapshots: %w", err)
		}
		for _, p := range previous {
			prevByID[p.ID] = p
		}
	}

	if err := s.tasks.SaveTasks(ctx, tasks); err != nil {
		return Result{}, fmt.Errorf("saving tasks: %w", err)
	}
	res := Result{Tasks: tasks, Awards: []model.XPEntry{}}

	players, err := s.tasks.Players(ctx)
	if err != nil {
		s.logger.Warn("loading players, owners used as player ids", zap.Error(err))
	}

	var errs []error
	touched := map[string]bool{}
	for _, t := range tasks {
		var prev *model.Task
		if p, ok := prevByID[t.ID]; ok {
			prev = &p
		} else if p, ok := o.previous[t.ID]; ok {
			prev = &p
		}
		// A later copy of the same task in this batch compares against this one.
		prevByID[t.ID] = t

		playerID := store.ResolvePlayer(players, t.Owner)
		if playerID == "" {
			if t.Status == model.StatusCompleted && !prev.Completed() {
				s.logger.Warn("completed task has no owner, no xp recorded", zap.String("task", t.ID))
			}
			continue
		}

		if t.Status == model.StatusCompleted && !prev.Completed() && (!t.End.Finished() || !t.Deadline.IsSet()) {
			s.logger.Warn("completed task lacks an end date or deadline, no xp recorded",
				zap.String("task", t.ID), zap.String("player", playerID))
			res.Skipped = append(res.Skipped, t.ID)
			continue
		}

		entry, err := s.ledger.Record(ctx, playerID, prev, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			continue
		}
		if entry != nil {
			res.Awards = append(res.Awards, *entry)
			touched[playerID] = true
		}
	}

	if s.missions != nil {
		for playerID := range touched {
			entries, err := s.missions.Check(ctx, playerID)
			if err != nil {
				errs = append(errs, fmt.Errorf("missions for %s: %w", playerID, err))
			}
			res.Awards = append(res.Awards, entries...)
		}
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("%w: %w", ErrLedger, errors.Join(errs...))
	}
	return res, nil
}

// normalize assigns ids and defaults and recomputes the derived fields.
func normalize(t *model.Task, now time.Time) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Title = strings.TrimSpace(t.Title)
	t.Owner = strings.TrimSpace(t.Owner)
	if !t.Status.Valid() {
		t.Status = model.StatusTodo
	}
	if !t.Priority.Valid() {
		t.Priority = model.PriorityMedium
	}
	workdays.Apply(t, now)
	t.UpdatedAt = now.UTC()
}

// Tasks lists stored tasks.
func (s *Service) Tasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error) {
	return s.tasks.Tasks(ctx, f)
}

// History returns the player's XP history, newest first.
func (s *Service) History(ctx context.Context, playerID string) []model.XPEntry {
	return s.ledger.History(ctx, playerID)
}
