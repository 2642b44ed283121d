package overdue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	table, err := NewTable(dir)
	require.NoError(t, err)

	now := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	table.Update("t1", "evt-1", "Ship it", now.Add(24*time.Hour), now)
	table.Update("t2", "evt-2", "Already late", now.Add(-time.Hour), now)
	table.Update("t3", "evt-3", "Later", now.Add(36*time.Hour), now)
	assert.Equal(t, 2, table.Len())
	assert.False(t, table.Has("t2"))

	require.NoError(t, table.Save())
	reloaded, err := NewTable(dir)
	require.NoError(t, err)
	require.True(t, reloaded.Has("t1"))

	assert.Empty(t, reloaded.Sweep(now))
	swept := reloaded.Sweep(now.Add(48 * time.Hour))
	require.Len(t, swept, 2)
	assert.Equal(t, "evt-1", swept[0].EventID)
	assert.Equal(t, "t3", swept[1].TaskID)
	assert.Zero(t, reloaded.Len())
}

func TestUpdateOnlyDirtiesOnChange(t *testing.T) {
	dir := t.TempDir()
	table, err := NewTable(dir)
	require.NoError(t, err)

	now := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	due := now.Add(time.Hour)
	table.Update("t1", "evt-1", "Ship it", due, now)
	require.NoError(t, table.Save())

	table.Update("t1", "evt-1", "Ship it", due, now)
	assert.False(t, table.dirty)
	table.Update("t1", "evt-1", "‣ Ship it", due, now)
	assert.True(t, table.dirty)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{"), 0600))
	_, err := NewTable(dir)
	assert.Error(t, err)
}
