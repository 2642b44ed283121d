// Package overdue keeps the mirrored tasks whose deadline has not passed yet,
// so a later run can mark their events overdue without reading every task.
package overdue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	fileName      = "pending_tasks.json"
	formatVersion = 1
)

// Entry is a mirrored task that will turn overdue once Due passes.
type Entry struct {
	TaskID  string    `json:"task_id"`
	EventID string    `json:"event_id"`
	Summary string    `json:"summary"`
	Due     time.Time `json:"due"`
}

type file struct {
	Version int     `json:"version"`
	Pending []Entry `json:"pending"`
}

type Table struct {
	path    string
	pending map[string]Entry
	dirty   bool
}

func NewTable(dir string) (*Table, error) {
	t := &Table{
		path:    filepath.Join(dir, fileName),
		pending: map[string]Entry{},
	}
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) Load() error {
	b, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("reading overdue table %s: %w", t.path, err)
	}
	if f.Version > formatVersion {
		return fmt.Errorf("overdue table %s: unsupported version %d", t.path, f.Version)
	}
	t.pending = make(map[string]Entry, len(f.Pending))
	for _, e := range f.Pending {
		t.pending[e.TaskID] = e
	}
	return nil
}

// Save writes the table if it changed. Entries are stored by due time.
func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(file{Version: formatVersion, Pending: t.sorted()}, "", "  ")
	if err != nil {
		return err
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

func (t *Table) sorted() []Entry {
	out := make([]Entry, 0, len(t.pending))
	for _, e := range t.pending {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Due.Equal(out[j].Due) {
			return out[i].Due.Before(out[j].Due)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// Update tracks taskID while it is due after now; otherwise it is dropped
// from the table.
func (t *Table) Update(taskID, eventID, summary string, due, now time.Time) {
	if due.IsZero() || !due.After(now) {
		t.Remove(taskID)
		return
	}
	e := Entry{TaskID: taskID, EventID: eventID, Summary: summary, Due: due}
	if old, ok := t.pending[taskID]; !ok || !old.Due.Equal(due) || old.EventID != eventID || old.Summary != summary {
		t.pending[taskID] = e
		t.dirty = true
	}
}

func (t *Table) Remove(taskID string) {
	if _, ok := t.pending[taskID]; ok {
		delete(t.pending, taskID)
		t.dirty = true
	}
}

func (t *Table) Has(taskID string) bool {
	_, ok := t.pending[taskID]
	return ok
}

func (t *Table) Len() int { return len(t.pending) }

// Sweep removes and returns the entries due before now, earliest first.
func (t *Table) Sweep(now time.Time) []Entry {
	var swept []Entry
	for _, e := range t.sorted() {
		if !e.Due.Before(now) {
			break
		}
		swept = append(swept, e)
		delete(t.pending, e.TaskID)
		t.dirty = true
	}
	return swept
}
