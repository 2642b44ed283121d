// Package store persists tasks, the XP ledger, players and system settings.
// Two backends share one contract: an embedded SQLite database (the default,
// also used by tests) and a hosted Postgres database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

var ErrNotFound = errors.New("not found")

// TaskFilter narrows Tasks. Zero fields match everything.
type TaskFilter struct {
	Owner  string
	Status model.Status
	IDs    []string
}

// EntryFilter narrows Entries. Zero fields match everything; From and To are
// inclusive.
type EntryFilter struct {
	PlayerID  string
	Source    model.Source
	MissionID string
	From      time.Time
	To        time.Time
}

type Store interface {
	SaveTasks(ctx context.Context, tasks []model.Task) error
	Tasks(ctx context.Context, f TaskFilter) ([]model.Task, error)
	Task(ctx context.Context, id string) (*model.Task, error)

	AppendEntry(ctx context.Context, e model.XPEntry) error
	EntriesByPlayer(ctx context.Context, playerID string) ([]model.XPEntry, error)
	Entries(ctx context.Context, f EntryFilter) ([]model.XPEntry, error)

	UpsertPlayer(ctx context.Context, p model.Player) error
	Players(ctx context.Context) ([]model.Player, error)

	Setting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error

	// Reset deletes all data.
	Reset(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return OpenSQLite(ctx, dsn)
	case "postgres", "postgresql", "pgx":
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}

// ResolvePlayer maps a task owner to a player id: by id, then by
// case-insensitive name. Unknown owners are used verbatim.
func ResolvePlayer(players []model.Player, owner string) string {
	owner = strings.TrimSpace(owner)
	for _, p := range players {
		if p.ID == owner {
			return p.ID
		}
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, owner) {
			return p.ID
		}
	}
	return owner
}

// timeLayout is fixed width so that text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}
