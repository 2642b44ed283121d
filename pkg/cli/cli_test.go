package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskquest/pkg/analytics"
	"github.com/harrisonrobin/taskquest/pkg/config"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/season"
	"github.com/harrisonrobin/taskquest/pkg/taskwarrior"
)

const (
	hookOld = `{"uuid":"a1","description":"Implement feature X","status":"pending","due":"20250110T170000Z","start":"20250102T090000Z","owner":"gabriel","priority":"H"}`
	hookNew = `{"uuid":"a1","description":"Implement feature X","status":"completed","due":"20250110T170000Z","start":"20250102T090000Z","end":"20250109T150000Z","owner":"gabriel","priority":"H"}`
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestHookPaysOnce(t *testing.T) {
	t.Setenv("TASKQUEST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKQUEST_LOG_LEVEL", "error")

	out, stderr, err := run(t, hookOld+"\n"+hookNew+"\n", "hook")
	require.NoError(t, err)

	var echoed taskwarrior.Task
	require.NoError(t, json.Unmarshal([]byte(out), &echoed))
	assert.Equal(t, "a1", echoed.UUID)
	assert.Equal(t, taskwarrior.COMPLETED, echoed.Status)
	assert.Contains(t, stderr, "+110 XP")

	// Editing the completed task again pays nothing.
	_, stderr, err = run(t, hookNew+"\n"+hookNew+"\n", "hook")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "XP")

	out, _, err = run(t, "", "xp", "gabriel")
	require.NoError(t, err)
	assert.Contains(t, out, "110 XP")
	assert.Contains(t, out, "Implement feature X")
}

func TestHookEchoKeepsAllAttributes(t *testing.T) {
	t.Setenv("TASKQUEST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKQUEST_LOG_LEVEL", "error")

	old := `{"uuid":"b1","description":"x","status":"pending","entry":"20250101T090000Z","owner":"ana"}`
	modified := `{"uuid":"b1","description":"x","status":"pending","entry":"20250101T090000Z",` +
		`"modified":"20250102T090000Z","depends":"c2","wait":"20250105T000000Z","recur":"weekly",` +
		`"until":"20250301T000000Z","parent":"p9","estimate":"3h","owner":"ana"}`

	out, _, err := run(t, old+"\n"+modified+"\n", "hook")
	require.NoError(t, err)
	assert.Equal(t, modified+"\n", out)

	var echoed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &echoed))
	for _, field := range []string{"entry", "modified", "depends", "wait", "recur", "until", "parent", "estimate"} {
		assert.Contains(t, echoed, field)
	}
	assert.Equal(t, "c2", echoed["depends"])
	assert.Equal(t, "3h", echoed["estimate"])
}

func TestHookRejectsBadInput(t *testing.T) {
	t.Setenv("TASKQUEST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKQUEST_LOG_LEVEL", "error")

	out, _, err := run(t, "not json", "hook")
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestTasksSaveAndList(t *testing.T) {
	t.Setenv("TASKQUEST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKQUEST_LOG_LEVEL", "error")

	tasks := `[{"id":"t-1","title":"Write docs","owner":"ana","start":"2025-01-02","end":"2025-01-10","deadline":"2025-01-10","status":"completed","priority":"low"}]`
	out, _, err := run(t, tasks, "tasks", "save", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 1 tasks.")
	assert.Contains(t, out, "+100 XP")

	out, _, err = run(t, "", "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "t-1")
	assert.Contains(t, out, "Write docs")
}

func TestPlayerRequired(t *testing.T) {
	t.Setenv("TASKQUEST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKQUEST_LOG_LEVEL", "error")

	_, _, err := run(t, "", "missions")
	assert.ErrorContains(t, err, "no player")

	t.Setenv("TASKQUEST_PLAYER", "ana")
	out, _, err := run(t, "", "checkin")
	require.NoError(t, err)
	assert.Contains(t, out, "+5 XP")
	assert.Contains(t, out, "1 days")

	out, _, err = run(t, "", "checkin")
	require.NoError(t, err)
	assert.Contains(t, out, "Already checked in today.")
}

func TestResetNeedsConfirmation(t *testing.T) {
	t.Setenv("TASKQUEST_CONFIG_DIR", t.TempDir())
	t.Setenv("TASKQUEST_LOG_LEVEL", "error")

	_, _, err := run(t, "", "reset")
	assert.Error(t, err)
}

func TestMirrorPayload(t *testing.T) {
	cfg = config.Defaults(t.TempDir())

	p := mirrorPayload(taskwarrior.Task{UUID: "a1", Description: "x", Status: taskwarrior.PENDING})
	assert.Empty(t, p.Remove)
	require.Len(t, p.Tasks, 1)
	assert.Equal(t, "a1", p.Tasks[0].ID)

	for _, tw := range []taskwarrior.Task{
		{UUID: "a1", Status: taskwarrior.DELETED},
		{UUID: "a1", Status: taskwarrior.WAITING},
		{UUID: "a1", Status: taskwarrior.PENDING, Tags: []string{"BLOCKED"}},
	} {
		p := mirrorPayload(tw)
		assert.Equal(t, []string{"a1"}, p.Remove, "status %s tags %v", tw.Status, tw.Tags)
		assert.Empty(t, p.Tasks)
	}
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(config.Log{Level: "loud"}, false)
	assert.Error(t, err)

	l, err := newLogger(config.Log{Level: "warn"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestRenderLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	s := season.Config{Name: "Kickoff"}
	renderLeaderboard(&buf, s, []analytics.Standing{
		{Rank: 1, PlayerID: "u-1", Name: "Gabriel", XP: 140, Tasks: 1},
		{Rank: 2, PlayerID: "u-2", XP: 5},
	})
	out := buf.String()
	assert.Contains(t, out, "Kickoff")
	assert.Contains(t, out, "Gabriel")
	assert.Contains(t, out, "u-2")

	buf.Reset()
	renderTasks(&buf, []model.Task{})
	assert.Contains(t, buf.String(), "No tasks.")
}
