// Package index remembers which calendar event mirrors which task, so the
// mirror can patch an event without searching the calendar for it.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	fileName      = "events.json"
	formatVersion = 1
)

// Mapping is the event mirroring one task.
type Mapping struct {
	EventID  string    `json:"event_id"`
	SyncedAt time.Time `json:"synced_at"`
}

type file struct {
	Version int                `json:"version"`
	Tasks   map[string]Mapping `json:"tasks"`
}

type EventIndex struct {
	path  string
	now   func() time.Time
	mu    sync.RWMutex
	tasks map[string]Mapping
	dirty bool
}

// NewEventIndex loads the index kept in dir; a missing file is an empty
// index.
func NewEventIndex(dir string) (*EventIndex, error) {
	idx := &EventIndex{
		path:  filepath.Join(dir, fileName),
		now:   time.Now,
		tasks: map[string]Mapping{},
	}
	if err := idx.Load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *EventIndex) Path() string { return idx.path }

func (idx *EventIndex) Load() error {
	b, err := os.ReadFile(idx.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var f file
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("reading event index %s: %w", idx.path, err)
	}
	if f.Version > formatVersion {
		return fmt.Errorf("event index %s: unsupported version %d", idx.path, f.Version)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tasks = map[string]Mapping{}
	for id, m := range f.Tasks {
		if m.EventID != "" {
			idx.tasks[id] = m
		}
	}
	return nil
}

// Save writes the index if it changed, replacing the file atomically.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(idx.path), 0700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(file{Version: formatVersion, Tasks: idx.tasks}, "", "  ")
	if err != nil {
		return err
	}
	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

// Get returns the event id for taskID, or "".
func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tasks[taskID].EventID
}

// Set records that eventID mirrors taskID as of now.
func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tasks[taskID] = Mapping{EventID: eventID, SyncedAt: idx.now().UTC()}
	idx.dirty = true
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.tasks[taskID]; ok {
		delete(idx.tasks, taskID)
		idx.dirty = true
	}
}

func (idx *EventIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.tasks)
}

// Stale lists the indexed task ids that are not in live, sorted.
func (idx *EventIndex) Stale(live []string) []string {
	keep := make(map[string]bool, len(live))
	for _, id := range live {
		keep[id] = true
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var stale []string
	for id := range idx.tasks {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}
