// Package settings reads and writes the system-wide gamification configuration
// kept as JSON documents in the system_settings key/value table.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/season"
	"github.com/harrisonrobin/taskquest/pkg/store"
)

const (
	KeyProductivity = "productivity_config"
	KeyStreak       = "streak_config"
	KeyMissions     = "mission_list"
	KeySeason       = "season_config"
	KeySeasons      = "season_list"
)

// ErrInvalid wraps every validation failure of a settings document.
var ErrInvalid = errors.New("invalid settings")

// KV is the persistence the settings live in. A key that was never written
// yields an error wrapping store.ErrNotFound.
type KV interface {
	Setting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Productivity holds the XP paid per task completion class.
type Productivity struct {
	Early             int `json:"early"`
	OnTime            int `json:"on_time"`
	Late              int `json:"late"`
	Rework            int `json:"rework"`
	LatePenaltyPerDay int `json:"late_penalty_per_day"`
}

func DefaultProductivity() Productivity {
	return Productivity{Early: 110, OnTime: 100, Late: 50, Rework: 40, LatePenaltyPerDay: 5}
}

func (p Productivity) Validate() error {
	if p.OnTime <= 0 {
		return fmt.Errorf("%w: on_time must be positive, got %d", ErrInvalid, p.OnTime)
	}
	if p.Early < 0 || p.Late < 0 || p.Rework < 0 || p.LatePenaltyPerDay < 0 {
		return fmt.Errorf("%w: XP values must not be negative", ErrInvalid)
	}
	return nil
}

type Streak struct {
	DailyXP        int  `json:"daily_xp"`
	Enabled        bool `json:"enabled"`
	IncludeTotal   bool `json:"include_total"`
	IncludeWeekly  bool `json:"include_weekly"`
	IncludeMonthly bool `json:"include_monthly"`
}

func DefaultStreak() Streak {
	return Streak{DailyXP: 5, Enabled: true, IncludeTotal: true}
}

func (s Streak) Validate() error {
	if s.DailyXP < 0 {
		return fmt.Errorf("%w: daily_xp must not be negative, got %d", ErrInvalid, s.DailyXP)
	}
	return nil
}

// Service wraps a KV with typed accessors. Reads never fail: a missing or
// unreadable document yields the defaults.
type Service struct {
	kv     KV
	logger *zap.Logger
	now    func() time.Time
}

func NewService(kv KV, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{kv: kv, logger: logger.Named("settings"), now: time.Now}
}

func (s *Service) load(ctx context.Context, key string, v any) bool {
	raw, err := s.kv.Setting(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("reading setting, using defaults", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("decoding setting, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Service) save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.kv.PutSetting(ctx, key, string(b)); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func (s *Service) Productivity(ctx context.Context) Productivity {
	var p Productivity
	if !s.load(ctx, KeyProductivity, &p) || p.Validate() != nil {
		return DefaultProductivity()
	}
	return p
}

func (s *Service) SaveProductivity(ctx context.Context, p Productivity) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.save(ctx, KeyProductivity, p)
}

func (s *Service) Streak(ctx context.Context) Streak {
	var st Streak
	if !s.load(ctx, KeyStreak, &st) || st.Validate() != nil {
		return DefaultStreak()
	}
	return st
}

func (s *Service) SaveStreak(ctx context.Context, st Streak) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return s.save(ctx, KeyStreak, st)
}

func (s *Service) Missions(ctx context.Context) []Mission {
	var list []Mission
	if !s.load(ctx, KeyMissions, &list) {
		return nil
	}
	for i := range list {
		list[i].normalize()
	}
	return list
}

func (s *Service) SaveMissions(ctx context.Context, list []Mission) error {
	for i := range list {
		list[i].normalize()
		if err := list[i].Validate(); err != nil {
			return fmt.Errorf("mission %d: %w", i, err)
		}
	}
	return s.save(ctx, KeyMissions, list)
}

// Season returns the configured season, or the current-month default when
// none is configured or the stored one is invalid.
func (s *Service) Season(ctx context.Context) season.Config {
	now := s.now()
	var cfg season.Config
	if s.load(ctx, KeySeason, &cfg) && cfg.Validate() == nil {
		return cfg
	}
	return season.Current(s.Seasons(ctx), season.Default(now), now)
}

func (s *Service) SaveSeason(ctx context.Context, cfg season.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.save(ctx, KeySeason, cfg)
}

func (s *Service) Seasons(ctx context.Context) []season.Config {
	var list []season.Config
	if !s.load(ctx, KeySeasons, &list) {
		return nil
	}
	return list
}

func (s *Service) SaveSeasons(ctx context.Context, list []season.Config) error {
	for _, cfg := range list {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("season %q: %w", cfg.Name, err)
		}
	}
	return s.save(ctx, KeySeasons, list)
}
