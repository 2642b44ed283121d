// Package mission measures player progress against the configured missions
// and pays their rewards into the XP ledger.
package mission

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/ledger"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/settings"
	"github.com/harrisonrobin/taskquest/pkg/store"
	"github.com/harrisonrobin/taskquest/pkg/streak"
)

type Source interface {
	Tasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error)
	Players(ctx context.Context) ([]model.Player, error)
	Entries(ctx context.Context, f store.EntryFilter) ([]model.XPEntry, error)
}

type Missions interface {
	Missions(ctx context.Context) []settings.Mission
}

// Window is an inclusive time range.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w Window) contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Period is the frequency window containing now, in UTC.
func Period(f settings.Frequency, now time.Time) Window {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var from, to time.Time
	switch f {
	case settings.Daily:
		from, to = day, day.AddDate(0, 0, 1)
	case settings.Monthly:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	default:
		// Weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		from = day.AddDate(0, 0, -offset)
		to = from.AddDate(0, 0, 7)
	}
	return Window{From: from, To: to.Add(-time.Nanosecond)}
}

type Progress struct {
	Mission settings.Mission `json:"mission"`
	Period  Window           `json:"period"`
	Count   int              `json:"count"`
	Target  int              `json:"target"`
	Done    bool             `json:"done"`
	Awarded bool             `json:"awarded"`
}

type Tracker struct {
	source   Source
	missions Missions
	ledger   *ledger.Ledger
	logger   *zap.Logger
}

func NewTracker(source Source, missions Missions, l *ledger.Ledger, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{source: source, missions: missions, ledger: l, logger: logger.Named("mission")}
}

// running reports whether m is active and now lies within its optional
// start/end bounds.
func running(m settings.Mission, now time.Time) bool {
	if !m.Active {
		return false
	}
	if !m.Start.IsZero() && now.Before(m.Start) {
		return false
	}
	if !m.End.IsZero() && now.After(m.End) {
		return false
	}
	return true
}

// Progress evaluates every running mission for playerID in its current period.
func (t *Tracker) Progress(ctx context.Context, playerID string) ([]Progress, error) {
	now := t.ledger.Now()
	var list []settings.Mission
	for _, m := range t.missions.Missions(ctx) {
		if running(m, now) {
			list = append(list, m)
		}
	}
	out := []Progress{}
	if len(list) == 0 {
		return out, nil
	}

	tasks, err := t.playerTasks(ctx, playerID)
	if err != nil {
		return nil, err
	}
	entries, err := t.source.Entries(ctx, store.EntryFilter{PlayerID: playerID})
	if err != nil {
		return nil, fmt.Errorf("loading xp entries: %w", err)
	}

	var streaks, rewards []model.XPEntry
	for _, e := range entries {
		switch e.Source {
		case model.SourceStreak:
			streaks = append(streaks, e)
		case model.SourceMission:
			rewards = append(rewards, e)
		}
	}

	for _, m := range list {
		p := Progress{Mission: m, Period: Period(m.Frequency, now), Target: m.Target}
		p.Count, p.Done = measure(m, p.Period, tasks, streaks, now)
		p.Awarded = awarded(m, p.Period, rewards)
		out = append(out, p)
	}
	return out, nil
}

func (t *Tracker) playerTasks(ctx context.Context, playerID string) ([]model.Task, error) {
	all, err := t.source.Tasks(ctx, store.TaskFilter{Status: model.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	players, err := t.source.Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}
	var out []model.Task
	for _, task := range all {
		if store.ResolvePlayer(players, task.Owner) == playerID {
			out = append(out, task)
		}
	}
	return out, nil
}

func measure(m settings.Mission, w Window, tasks []model.Task, streaks []model.XPEntry, now time.Time) (int, bool) {
	var completed, early, high, late int
	for _, task := range tasks {
		end, ok := task.End.Day()
		if !ok || !w.contains(end.Time) {
			continue
		}
		completed++
		if task.MetDeadline && task.DelayDays < 0 {
			early++
		}
		if task.Priority == model.PriorityHigh || task.Priority == model.PriorityCritical {
			high++
		}
		if task.Deadline.IsSet() && !task.MetDeadline {
			late++
		}
	}

	switch m.Type {
	case settings.MissionCompleteTasks:
		return completed, completed >= m.Target
	case settings.MissionCompleteEarly:
		return early, early >= m.Target
	case settings.MissionHighEffortTasks:
		return high, high >= m.Target
	case settings.MissionNoDelays:
		onTime := completed - late
		return onTime, late == 0 && completed >= max(m.Target, 1)
	case settings.MissionStreakDays:
		n := streak.Length(streaks, now)
		return n, n >= m.Target
	}
	// Meetings and peer reviews are not tracked by the ledger.
	return 0, false
}

func awarded(m settings.Mission, w Window, rewards []model.XPEntry) bool {
	for _, e := range rewards {
		if e.MissionID != m.ID {
			continue
		}
		if !m.Continuous || w.contains(e.Date) {
			return true
		}
	}
	return false
}

// Check pays every mission that is done and not yet paid for the period.
// It implements tracker.MissionChecker.
func (t *Tracker) Check(ctx context.Context, playerID string) ([]model.XPEntry, error) {
	progress, err := t.Progress(ctx, playerID)
	if err != nil {
		return nil, err
	}
	paid := []model.XPEntry{}
	for _, p := range progress {
		if !p.Done || p.Awarded {
			continue
		}
		e := model.XPEntry{
			PlayerID:    playerID,
			XP:          p.Mission.XPReward,
			Source:      model.SourceMission,
			Description: fmt.Sprintf("Mission completed: %s", p.Mission.Name),
			MissionID:   p.Mission.ID,
		}
		if err := t.ledger.Append(ctx, &e); err != nil {
			return paid, err
		}
		t.logger.Info("mission reward paid",
			zap.String("player", playerID), zap.String("mission", p.Mission.ID), zap.Int("xp", e.XP))
		paid = append(paid, e)
	}
	return paid, nil
}
