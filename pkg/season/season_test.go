package season

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	now := time.Date(2025, 2, 14, 15, 0, 0, 0, time.UTC)
	s := Default(now)

	assert.NoError(t, s.Validate())
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC), s.End)
	assert.Equal(t, "Season February 2025", s.Name)
	assert.True(t, s.Contains(now))
	assert.True(t, s.Contains(s.End))
	assert.False(t, s.Contains(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, s.Contains(time.Time{}))
}

func TestValidate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, Config{Start: start, End: start}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Config{Name: "Q1", Start: start.AddDate(0, 1, 0), End: start}.Validate(), ErrInvalid)
	assert.NoError(t, Config{Name: "Q1", Start: start, End: start}.Validate())
}

func TestCurrent(t *testing.T) {
	now := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	q2 := Config{Name: "Q2", Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)}
	q1 := Config{Name: "Q1", Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, "Q2", Current([]Config{q1, q2}, Default(now), now).Name)
	assert.Equal(t, Default(now), Current([]Config{q1}, Default(now), now))
}
