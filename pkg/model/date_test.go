package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), d.Time)

	d, err = ParseDate("2025-01-09T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-09", d.String())

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.False(t, d.IsSet())

	_, err = ParseDate("09/01/2025")
	assert.Error(t, err)
}

func TestTaskJSONDates(t *testing.T) {
	input := `{
		"id": "t1",
		"title": "Implement feature X",
		"owner": "gabriel",
		"start": "2025-01-01",
		"deadline": "not a date",
		"end": "",
		"status": "in-progress",
		"priority": "medium"
	}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(input), &task))
	assert.Equal(t, "2025-01-01", task.Start.String())
	assert.False(t, task.Deadline.IsSet(), "unparsable deadline decodes as unset")
	assert.False(t, task.End.Finished())

	task.End = FinishedOn(MustDate("2025-01-09"))
	out, err := json.Marshal(task)
	require.NoError(t, err)

	var back Task
	require.NoError(t, json.Unmarshal(out, &back))
	day, ok := back.End.Day()
	require.True(t, ok)
	assert.Equal(t, "2025-01-09", day.String())
}

func TestFinishedOnUnsetDay(t *testing.T) {
	assert.False(t, FinishedOn(Date{}).Finished())
	assert.Equal(t, Unfinished(), FinishedOn(Date{}))
}
