// Package analytics computes the dashboard aggregates: task KPIs with
// outlier-robust delay statistics and the season XP leaderboard.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/season"
	"github.com/harrisonrobin/taskquest/pkg/settings"
	"github.com/harrisonrobin/taskquest/pkg/store"
)

// DelayStats describes the delay of completed tasks in business days after
// removing outliers outside 1.5 IQR of the quartiles.
type DelayStats struct {
	Samples         int     `json:"samples"`
	OutliersRemoved int     `json:"outliers_removed"`
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
	Mode            int     `json:"mode"`
}

type Summary struct {
	Total      int                  `json:"total"`
	ByStatus   map[model.Status]int `json:"by_status"`
	Completed  int                  `json:"completed"`
	OnTime     int                  `json:"on_time"`
	Late       int                  `json:"late"`
	OnTimeRate float64              `json:"on_time_rate"`
	Delay      DelayStats           `json:"delay"`
}

func Summarize(tasks []model.Task) Summary {
	s := Summary{ByStatus: map[model.Status]int{}}
	var delays []int
	for _, t := range tasks {
		s.Total++
		s.ByStatus[t.Status]++
		if !t.Completed() {
			continue
		}
		s.Completed++
		if !t.Deadline.IsSet() {
			continue
		}
		if t.MetDeadline {
			s.OnTime++
		} else {
			s.Late++
		}
		delays = append(delays, t.DelayDays)
	}
	if n := s.OnTime + s.Late; n > 0 {
		s.OnTimeRate = float64(s.OnTime) / float64(n)
	}
	s.Delay = RobustDelay(delays)
	return s
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func RobustDelay(delays []int) DelayStats {
	if len(delays) == 0 {
		return DelayStats{}
	}
	sorted := make([]float64, len(delays))
	for i, d := range delays {
		sorted[i] = float64(d)
	}
	sort.Float64s(sorted)

	kept := sorted
	// Fewer than four samples have no meaningful quartiles.
	if len(sorted) >= 4 {
		q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
		iqr := q3 - q1
		lo, hi := q1-1.5*iqr, q3+1.5*iqr
		kept = kept[:0:0]
		for _, v := range sorted {
			if v >= lo && v <= hi {
				kept = append(kept, v)
			}
		}
	}

	st := DelayStats{Samples: len(kept), OutliersRemoved: len(sorted) - len(kept)}
	var sum float64
	counts := map[int]int{}
	for _, v := range kept {
		sum += v
		counts[int(v)]++
	}
	st.Mean = sum / float64(len(kept))
	st.Median = quantile(kept, 0.5)

	best := -1
	for v, c := range counts {
		// Ties go to the smaller delay.
		if c > best || (c == best && v < st.Mode) {
			st.Mode, best = v, c
		}
	}
	return st
}

// Standing is one leaderboard row.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	XP       int    `json:"xp"`
	Tasks    int    `json:"tasks"`
}

// Leaderboard totals XP per player over entries dated inside s. Streak bonuses
// count only when includeStreak is set. Players with equal XP share a rank.
func Leaderboard(entries []model.XPEntry, players []model.Player, s season.Config, includeStreak bool) []Standing {
	names := map[string]string{}
	for _, p := range players {
		names[p.ID] = p.Name
	}

	byPlayer := map[string]*Standing{}
	for _, e := range entries {
		if !s.Contains(e.Date) {
			continue
		}
		if e.Source == model.SourceStreak && !includeStreak {
			continue
		}
		st, ok := byPlayer[e.PlayerID]
		if !ok {
			name := names[e.PlayerID]
			if name == "" {
				name = e.PlayerID
			}
			st = &Standing{PlayerID: e.PlayerID, Name: name}
			byPlayer[e.PlayerID] = st
		}
		st.XP += e.XP
		if e.Source == model.SourceTask {
			st.Tasks++
		}
	}

	out := make([]Standing, 0, len(byPlayer))
	for _, st := range byPlayer {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	for i := range out {
		if i > 0 && out[i].XP == out[i-1].XP {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

type Source interface {
	Tasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error)
	Entries(ctx context.Context, f store.EntryFilter) ([]model.XPEntry, error)
	Players(ctx context.Context) ([]model.Player, error)
}

type Settings interface {
	Season(ctx context.Context) season.Config
	Streak(ctx context.Context) settings.Streak
}

type Service struct {
	source   Source
	settings Settings
}

func NewService(source Source, cfg Settings) *Service {
	return &Service{source: source, settings: cfg}
}

// Summary aggregates the tasks of owner, or all tasks when owner is empty.
func (s *Service) Summary(ctx context.Context, owner string) (Summary, error) {
	tasks, err := s.source.Tasks(ctx, store.TaskFilter{Owner: owner})
	if err != nil {
		return Summary{}, fmt.Errorf("loading tasks: %w", err)
	}
	return Summarize(tasks), nil
}

// Leaderboard ranks players by XP earned in the current season.
func (s *Service) Leaderboard(ctx context.Context) (season.Config, []Standing, error) {
	cur := s.settings.Season(ctx)
	entries, err := s.source.Entries(ctx, store.EntryFilter{From: cur.Start, To: cur.End})
	if err != nil {
		return cur, nil, fmt.Errorf("loading xp entries: %w", err)
	}
	players, err := s.source.Players(ctx)
	if err != nil {
		return cur, nil, fmt.Errorf("loading players: %w", err)
	}
	return cur, Leaderboard(entries, players, cur, s.settings.Streak(ctx).IncludeTotal), nil
}
