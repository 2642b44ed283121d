package settings

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type MissionType string

const (
	MissionCompleteTasks   MissionType = "complete_tasks"
	MissionCompleteEarly   MissionType = "complete_early"
	MissionAttendMeetings  MissionType = "attend_meetings"
	MissionReviewPeerTasks MissionType = "review_peer_tasks"
	MissionStreakDays      MissionType = "streak_days"
	MissionNoDelays        MissionType = "no_delays"
	MissionHighEffortTasks MissionType = "high_effort_tasks"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Mission is a configured goal paying XPReward once per period.
type Mission struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        MissionType `json:"type"`
	Target      int         `json:"target"`
	XPReward    int         `json:"xp_reward"`
	Frequency   Frequency   `json:"frequency"`
	Start       time.Time   `json:"start,omitempty"`
	End         time.Time   `json:"end,omitempty"`
	// Continuous missions pay once per period; the others pay once ever.
	Continuous bool `json:"continuous"`
	Active     bool `json:"active"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func (m *Mission) normalize() {
	if m.ID == "" {
		m.ID = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(m.Name), "-"), "-")
	}
	if m.Frequency == "" {
		m.Frequency = Weekly
	}
}

func (m Mission) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: mission needs a name or id", ErrInvalid)
	}
	switch m.Type {
	case MissionCompleteTasks, MissionCompleteEarly, MissionAttendMeetings, MissionReviewPeerTasks,
		MissionStreakDays, MissionNoDelays, MissionHighEffortTasks:
	default:
		return fmt.Errorf("%w: unknown mission type %q", ErrInvalid, m.Type)
	}
	switch m.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("%w: unknown mission frequency %q", ErrInvalid, m.Frequency)
	}
	if m.Target <= 0 && m.Type != MissionNoDelays {
		return fmt.Errorf("%w: target must be positive, got %d", ErrInvalid, m.Target)
	}
	if m.XPReward < 0 {
		return fmt.Errorf("%w: xp_reward must not be negative, got %d", ErrInvalid, m.XPReward)
	}
	if !m.Start.IsZero() && !m.End.IsZero() && m.Start.After(m.End) {
		return fmt.Errorf("%w: start must not be after end", ErrInvalid)
	}
	return nil
}
