// Package streak pays the once-per-day login bonus and measures login streaks.
package streak

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/ledger"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/settings"
	"github.com/harrisonrobin/taskquest/pkg/store"
)

const Description = "Daily login bonus (streak)"

type Entries interface {
	Entries(ctx context.Context, f store.EntryFilter) ([]model.XPEntry, error)
}

type Settings interface {
	Streak(ctx context.Context) settings.Streak
}

type Awarder struct {
	ledger   *ledger.Ledger
	entries  Entries
	settings Settings
	logger   *zap.Logger
}

func NewAwarder(l *ledger.Ledger, entries Entries, cfg Settings, logger *zap.Logger) *Awarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Awarder{ledger: l, entries: entries, settings: cfg, logger: logger.Named("streak")}
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// CheckIn awards the daily bonus the first time playerID checks in on the
// current UTC day. It returns nil, nil when streaks are disabled or the bonus
// was already paid today.
func (a *Awarder) CheckIn(ctx context.Context, playerID string) (*model.XPEntry, error) {
	cfg := a.settings.Streak(ctx)
	if !cfg.Enabled || cfg.DailyXP <= 0 {
		return nil, nil
	}

	from, to := dayBounds(a.ledger.Now())
	today, err := a.entries.Entries(ctx, store.EntryFilter{
		PlayerID: playerID,
		Source:   model.SourceStreak,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, fmt.Errorf("checking today's streak bonus: %w", err)
	}
	if len(today) > 0 {
		return nil, nil
	}

	entry := model.XPEntry{
		PlayerID:    playerID,
		XP:          cfg.DailyXP,
		Source:      model.SourceStreak,
		Description: Description,
	}
	if err := a.ledger.Append(ctx, &entry); err != nil {
		return nil, err
	}
	a.logger.Info("streak bonus awarded", zap.String("player", playerID), zap.Int("xp", entry.XP))
	return &entry, nil
}

// Current is the player's streak length in days.
func (a *Awarder) Current(ctx context.Context, playerID string) (int, error) {
	entries, err := a.entries.Entries(ctx, store.EntryFilter{PlayerID: playerID, Source: model.SourceStreak})
	if err != nil {
		return 0, fmt.Errorf("loading streak entries: %w", err)
	}
	return Length(entries, a.ledger.Now()), nil
}

// Length counts consecutive UTC days with at least one entry, ending today,
// or yesterday when there is no entry today yet.
func Length(entries []model.XPEntry, now time.Time) int {
	days := map[time.Time]bool{}
	for _, e := range entries {
		d, _ := dayBounds(e.Date)
		days[d] = true
	}

	day, _ := dayBounds(now)
	if !days[day] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[day] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}
