package model

import "time"

type Source string

const (
	SourceTask    Source = "task"
	SourceStreak  Source = "streak"
	SourceMission Source = "mission"
	SourceManual  Source = "manual"
)

// XPEntry is an immutable record of an XP award.
type XPEntry struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"player_id"`
	Date        time.Time `json:"date"`
	XP          int       `json:"xp"`
	Source      Source    `json:"source"`
	Description string    `json:"description"`
	TaskID      string    `json:"task_id,omitempty"`
	MissionID   string    `json:"mission_id,omitempty"`
}

// TotalXP sums the XP of entries.
func TotalXP(entries []XPEntry) int {
	total := 0
	for _, e := range entries {
		total += e.XP
	}
	return total
}
