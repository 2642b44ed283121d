package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultCalendar, cfg.Calendar)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(dir, "taskquest.db"), cfg.Database.DSN)
	assert.Equal(t, DefaultAddr, cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	yml := "calendar: Work\nplayer: gabriel\ndatabase:\n  driver: postgres\n  dsn: postgres://localhost/quest\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0600))
	t.Setenv("TASKQUEST_DSN", "postgres://db/quest")
	t.Setenv("TASKQUEST_HTTP_ADDR", ":9000")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "Work", cfg.Calendar)
	assert.Equal(t, "gabriel", cfg.Player)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://db/quest", cfg.Database.DSN)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	tml := "calendar = \"Sprint\"\n\n[log]\nlevel = \"debug\"\ndevelopment = true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(tml), 0600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "Sprint", cfg.Calendar)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("calendar: [unterminated"), 0600))
	_, err := LoadFrom(dir)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKQUEST_CONFIG_DIR", dir)

	cfg := Defaults(dir)
	cfg.Calendar = "Team"
	require.NoError(t, Save(cfg))

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
