// Package season describes the ranking periods XP leaderboards are computed over.
package season

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalid = errors.New("invalid season: name is required and start must not be after end")

type Config struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Start       time.Time `json:"start" yaml:"start"`
	End         time.Time `json:"end" yaml:"end"`
}

// Default is the season spanning the calendar month of now, in now's location.
func Default(now time.Time) Config {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Config{
		Name:        fmt.Sprintf("Season %s", start.Format("January 2006")),
		Description: "Default season (current month), generated automatically.",
		Start:       start,
		End:         end,
	}
}

func (c Config) Validate() error {
	if c.Name == "" || c.Start.IsZero() || c.End.IsZero() || c.Start.After(c.End) {
		return ErrInvalid
	}
	return nil
}

// Contains reports whether t falls inside the season, bounds included.
func (c Config) Contains(t time.Time) bool {
	if t.IsZero() || c.Validate() != nil {
		return false
	}
	return !t.Before(c.Start) && !t.After(c.End)
}

// Current picks the season of list containing now, falling back to fallback.
func Current(list []Config, fallback Config, now time.Time) Config {
	for _, c := range list {
		if c.Contains(now) {
			return c
		}
	}
	return fallback
}
