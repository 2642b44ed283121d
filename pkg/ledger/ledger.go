// Package ledger awards XP for task completions and keeps the append-only
// per-player XP history.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

// Store is the ledger persistence. EntriesByPlayer returns an empty slice for
// unknown players.
type Store interface {
	AppendEntry(ctx context.Context, e model.XPEntry) error
	EntriesByPlayer(ctx context.Context, playerID string) ([]model.XPEntry, error)
}

// PolicySource supplies the pricing policy at record time.
type PolicySource func(ctx context.Context) Policy

type Ledger struct {
	store  Store
	policy PolicySource
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Ledger)

func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy = func(context.Context) Policy { return p } }
}

func WithPolicySource(src PolicySource) Option {
	return func(l *Ledger) { l.policy = src }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger.Named("ledger")
		}
	}
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		policy: func(context.Context) Policy { return DefaultPolicy() },
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now is the ledger clock.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Record evaluates the transition prev -> next for playerID and appends one
// task entry when it qualifies. It returns nil, nil when nothing qualifies.
func (l *Ledger) Record(ctx context.Context, playerID string, prev *model.Task, next model.Task) (*model.XPEntry, error) {
	award, ok := l.policy(ctx).Evaluate(prev, next)
	if !ok {
		if next.Status == model.StatusCompleted && !prev.Completed() {
			l.logger.Debug("completion skipped, missing end date or deadline",
				zap.String("task", next.ID), zap.String("player", playerID))
		}
		return nil, nil
	}

	entry := model.XPEntry{
		PlayerID:    playerID,
		XP:          award.XP,
		Source:      model.SourceTask,
		Description: award.Description(),
		TaskID:      award.TaskID,
	}
	if err := l.Append(ctx, &entry); err != nil {
		return nil, err
	}
	l.logger.Info("task completion awarded",
		zap.String("player", playerID),
		zap.String("task", next.ID),
		zap.String("timeliness", string(award.Timeliness)),
		zap.Int("xp", award.XP))
	return &entry, nil
}

// Append stores e, filling in its id and date when empty.
func (l *Ledger) Append(ctx context.Context, e *model.XPEntry) error {
	if e.PlayerID == "" {
		return fmt.Errorf("xp entry: player id required")
	}
	if e.ID == "" {
		e.ID = l.newID()
	}
	if e.Date.IsZero() {
		e.Date = l.now().UTC()
	}
	if err := l.store.AppendEntry(ctx, *e); err != nil {
		return fmt.Errorf("recording %s xp for %s: %w", e.Source, e.PlayerID, err)
	}
	return nil
}

// History returns playerID's entries newest first. Failures are logged and
// yield an empty history.
func (l *Ledger) History(ctx context.Context, playerID string) []model.XPEntry {
	entries, err := l.store.EntriesByPlayer(ctx, playerID)
	if err != nil {
		l.logger.Warn("loading xp history", zap.String("player", playerID), zap.Error(err))
		return []model.XPEntry{}
	}
	if entries == nil {
		return []model.XPEntry{}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}
