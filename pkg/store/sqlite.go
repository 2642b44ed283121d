package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

// SQLStore is the embedded SQLite backend.
type SQLStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the app is request/response at human scale.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.path
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		deadline TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT '',
		duration_days INTEGER NOT NULL DEFAULT 0,
		delay_days INTEGER NOT NULL DEFAULT 0,
		met_deadline INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS xp_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		player_id TEXT NOT NULL,
		date TEXT NOT NULL,
		xp INTEGER NOT NULL,
		source TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		task_id TEXT NOT NULL DEFAULT '',
		mission_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_xp_history_player ON xp_history(player_id, date);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS system_settings (
		config_key TEXT PRIMARY KEY,
		config_value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const upsertTaskSQLite = `
INSERT INTO tasks (id, title, owner, description, start_date, end_date, deadline,
	status, priority, duration_days, delay_days, met_deadline, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	owner = excluded.owner,
	description = excluded.description,
	start_date = excluded.start_date,
	end_date = excluded.end_date,
	deadline = excluded.deadline,
	status = excluded.status,
	priority = excluded.priority,
	duration_days = excluded.duration_days,
	delay_days = excluded.delay_days,
	met_deadline = excluded.met_deadline,
	updated_at = excluded.updated_at`

// SaveTasks upserts tasks in one transaction.
func (s *SQLStore) SaveTasks(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertTaskSQLite)
	if err != nil {
		return fmt.Errorf("prepare task upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("task %q: id required", t.Title)
		}
		_, err := stmt.ExecContext(ctx,
			t.ID, t.Title, t.Owner, t.Description,
			t.Start.String(), t.End.String(), t.Deadline.String(),
			string(t.Status), string(t.Priority),
			t.DurationDays, t.DelayDays, t.MetDeadline, formatTime(t.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

const taskColumns = `id, title, owner, description, start_date, end_date, deadline,
	status, priority, duration_days, delay_days, met_deadline, updated_at`

func (s *SQLStore) Tasks(ctx context.Context, f TaskFilter) ([]model.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, f.Owner)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if len(f.IDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.IDs)), ",")
		where = append(where, "id IN ("+marks+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY deadline = '', deadline, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) Task(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(sc scanner) (model.Task, error) {
	var (
		t                     model.Task
		start, end, deadline  string
		status, priority, upd string
	)
	err := sc.Scan(&t.ID, &t.Title, &t.Owner, &t.Description, &start, &end, &deadline,
		&status, &priority, &t.DurationDays, &t.DelayDays, &t.MetDeadline, &upd)
	if err != nil {
		return t, err
	}
	// Stored dates were written by Date.String; a bad value reads back as unset.
	t.Start, _ = model.ParseDate(start)
	t.Deadline, _ = model.ParseDate(deadline)
	endDay, _ := model.ParseDate(end)
	t.End = model.FinishedOn(endDay)
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	t.UpdatedAt, _ = parseTime(upd)
	return t, nil
}

func (s *SQLStore) AppendEntry(ctx context.Context, e model.XPEntry) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO xp_history (id, player_id, date, xp, source, description, task_id, mission_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PlayerID, formatTime(e.Date), e.XP, string(e.Source), e.Description, e.TaskID, e.MissionID)
	if err != nil {
		return fmt.Errorf("append xp entry: %w", err)
	}
	return nil
}

func (s *SQLStore) EntriesByPlayer(ctx context.Context, playerID string) ([]model.XPEntry, error) {
	return s.Entries(ctx, EntryFilter{PlayerID: playerID})
}

// Entries returns matching entries newest first.
func (s *SQLStore) Entries(ctx context.Context, f EntryFilter) ([]model.XPEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.PlayerID != "" {
		where = append(where, "player_id = ?")
		args = append(args, f.PlayerID)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.MissionID != "" {
		where = append(where, "mission_id = ?")
		args = append(args, f.MissionID)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatTime(f.To))
	}

	query := "SELECT id, player_id, date, xp, source, description, task_id, mission_id FROM xp_history"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, seq DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query xp history: %w", err)
	}
	defer rows.Close()

	entries := []model.XPEntry{}
	for rows.Next() {
		var (
			e            model.XPEntry
			date, source string
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &date, &e.XP, &source, &e.Description, &e.TaskID, &e.MissionID); err != nil {
			return nil, err
		}
		if e.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("xp entry %s: bad date %q: %w", e.ID, date, err)
		}
		e.Source = model.Source(source)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) UpsertPlayer(ctx context.Context, p model.Player) error {
	if p.ID == "" {
		return fmt.Errorf("player id required")
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO players (id, name, email) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		p.ID, p.Name, p.Email)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) Players(ctx context.Context) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email FROM players ORDER BY name, id")
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

func (s *SQLStore) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT config_value FROM system_settings WHERE config_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO system_settings (config_key, config_value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(config_key) DO UPDATE SET config_value = excluded.config_value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Reset(ctx context.Context) error {
	for _, table := range []string{"xp_history", "tasks", "players", "system_settings"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}
