package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

// PGStore is the hosted Postgres backend.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := NewPGStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the tables if they don't exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store not initialized")
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL DEFAULT '',
    owner         TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    start_date    DATE,
    end_date      DATE,
    deadline      DATE,
    status        TEXT NOT NULL,
    priority      TEXT NOT NULL DEFAULT '',
    duration_days INTEGER NOT NULL DEFAULT 0,
    delay_days    INTEGER NOT NULL DEFAULT 0,
    met_deadline  BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks (owner)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
		`CREATE TABLE IF NOT EXISTS xp_history (
    seq         BIGSERIAL PRIMARY KEY,
    id          TEXT NOT NULL UNIQUE,
    player_id   TEXT NOT NULL,
    date        TIMESTAMPTZ NOT NULL,
    xp          INTEGER NOT NULL,
    source      TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    task_id     TEXT NOT NULL DEFAULT '',
    mission_id  TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_xp_history_player ON xp_history (player_id, date)`,
		`CREATE TABLE IF NOT EXISTS players (
    id    TEXT PRIMARY KEY,
    name  TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS system_settings (
    config_key   TEXT PRIMARY KEY,
    config_value TEXT NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func dateOrNil(d model.Date) any {
	if !d.IsSet() {
		return nil
	}
	return d.Time
}

func dateFrom(t *time.Time) model.Date {
	if t == nil {
		return model.Date{}
	}
	return model.Day(*t)
}

func (s *PGStore) SaveTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("task %q: id required", t.Title)
		}
		end, _ := t.End.Day()
		updated := t.UpdatedAt
		if updated.IsZero() {
			updated = time.Now()
		}
		_, err := tx.Exec(ctx, `
INSERT INTO tasks (id, title, owner, description, start_date, end_date, deadline,
    status, priority, duration_days, delay_days, met_deadline, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    owner = EXCLUDED.owner,
    description = EXCLUDED.description,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    deadline = EXCLUDED.deadline,
    status = EXCLUDED.status,
    priority = EXCLUDED.priority,
    duration_days = EXCLUDED.duration_days,
    delay_days = EXCLUDED.delay_days,
    met_deadline = EXCLUDED.met_deadline,
    updated_at = EXCLUDED.updated_at`,
			t.ID, t.Title, t.Owner, t.Description,
			dateOrNil(t.Start), dateOrNil(end), dateOrNil(t.Deadline),
			string(t.Status), string(t.Priority),
			t.DurationDays, t.DelayDays, t.MetDeadline, updated,
		)
		if err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func scanPGTask(row pgx.Row) (model.Task, error) {
	var (
		t                    model.Task
		start, end, deadline *time.Time
		status, priority     string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Owner, &t.Description, &start, &end, &deadline,
		&status, &priority, &t.DurationDays, &t.DelayDays, &t.MetDeadline, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Start = dateFrom(start)
	t.Deadline = dateFrom(deadline)
	t.End = model.FinishedOn(dateFrom(end))
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	return t, nil
}

func (s *PGStore) Tasks(ctx context.Context, f TaskFilter) ([]model.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.Owner != "" {
		args = append(args, f.Owner)
		where = append(where, fmt.Sprintf("owner = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(f.IDs) > 0 {
		args = append(args, f.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY deadline NULLS LAST, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanPGTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PGStore) Task(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanPGTask(s.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (s *PGStore) AppendEntry(ctx context.Context, e model.XPEntry) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO xp_history (id, player_id, date, xp, source, description, task_id, mission_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.PlayerID, e.Date.UTC(), e.XP, string(e.Source), e.Description, e.TaskID, e.MissionID)
	if err != nil {
		return fmt.Errorf("append xp entry: %w", err)
	}
	return nil
}

func (s *PGStore) EntriesByPlayer(ctx context.Context, playerID string) ([]model.XPEntry, error) {
	return s.Entries(ctx, EntryFilter{PlayerID: playerID})
}

func (s *PGStore) Entries(ctx context.Context, f EntryFilter) ([]model.XPEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.PlayerID != "" {
		add("player_id = $%d", f.PlayerID)
	}
	if f.Source != "" {
		add("source = $%d", string(f.Source))
	}
	if f.MissionID != "" {
		add("mission_id = $%d", f.MissionID)
	}
	if !f.From.IsZero() {
		add("date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("date <= $%d", f.To)
	}

	query := "SELECT id, player_id, date, xp, source, description, task_id, mission_id FROM xp_history"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, seq DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query xp history: %w", err)
	}
	defer rows.Close()

	entries := []model.XPEntry{}
	for rows.Next() {
		var (
			e      model.XPEntry
			source string
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Date, &e.XP, &source, &e.Description, &e.TaskID, &e.MissionID); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		e.Source = model.Source(source)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PGStore) UpsertPlayer(ctx context.Context, p model.Player) error {
	if p.ID == "" {
		return fmt.Errorf("player id required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO players (id, name, email) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		p.ID, p.Name, p.Email)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", p.ID, err)
	}
	return nil
}

func (s *PGStore) Players(ctx context.Context) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, email FROM players ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *PGStore) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, "SELECT config_value FROM system_settings WHERE config_key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *PGStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO system_settings (config_key, config_value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (config_key) DO UPDATE SET config_value = EXCLUDED.config_value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (s *PGStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE xp_history, tasks, players, system_settings"); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
