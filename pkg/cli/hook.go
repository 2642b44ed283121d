package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/taskwarrior"
	"github.com/harrisonrobin/taskquest/pkg/tracker"
)

var hookMirror bool

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Taskwarrior on-add/on-modify hook",
	Long: `Install as ~/.task/hooks/on-modify.taskquest and on-add.taskquest.

The hook echoes the modified task back to Taskwarrior, saves it and pays XP when it
was just completed. With --mirror the calendar update runs in a background process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		twTasks, raw, err := taskwarrior.NewClient().ParseLines(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("parsing tasks from stdin: %w", err)
		}
		prev, next, err := taskwarrior.HookInput(twTasks)
		if err != nil {
			return err
		}

		// Taskwarrior stores what the hook prints; echo the new task verbatim.
		if err := echoTask(cmd.OutOrStdout(), raw[len(raw)-1]); err != nil {
			return fmt.Errorf("writing task to stdout: %w", err)
		}

		// From here on the modification is accepted; failures are only logged.
		if err := recordHook(cmd, prev, next); err != nil {
			logger.Error("hook: recording task", zap.String("uuid", next.UUID), zap.Error(err))
		}
		if hookMirror {
			if err := spawnPush(mirrorPayload(next)); err != nil {
				logger.Error("hook: starting calendar push", zap.Error(err))
			}
		}
		return nil
	},
}

func echoTask(w io.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func recordHook(cmd *cobra.Command, prev *taskwarrior.Task, next taskwarrior.Task) error {
	task, ok := taskwarrior.ToTask(next, defaultOwner())
	if !ok {
		return nil
	}
	var opts []tracker.SaveOption
	if prev != nil {
		if old, ok := taskwarrior.ToTask(*prev, defaultOwner()); ok {
			opts = append(opts, tracker.WithPrevious(old))
		}
	}

	ctx := cmd.Context()
	st, deps, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := deps.Tracker.SaveTasks(ctx, []model.Task{task}, opts...)
	if err != nil && !errors.Is(err, tracker.ErrLedger) {
		return err
	}
	for _, a := range res.Awards {
		// stdout belongs to Taskwarrior; feedback goes to stderr.
		fmt.Fprintf(cmd.ErrOrStderr(), "taskquest: %+d XP (%s)\n", a.XP, a.Description)
	}
	return err
}

// pushPayload is what the hook hands to the background calendar push.
type pushPayload struct {
	Tasks  []model.Task `json:"tasks"`
	Remove []string     `json:"remove"`
}

// mirrorPayload decides the calendar action for a hook task: deleted,
// waiting and BLOCKED tasks leave the calendar, the rest are synced.
func mirrorPayload(tw taskwarrior.Task) pushPayload {
	var p pushPayload
	hidden := tw.Status == taskwarrior.DELETED || tw.Status == taskwarrior.WAITING
	for _, tag := range tw.Tags {
		if tag == "BLOCKED" {
			hidden = true
		}
	}
	if hidden {
		p.Remove = []string{tw.UUID}
		return p
	}
	if task, ok := taskwarrior.ToTask(tw, defaultOwner()); ok {
		p.Tasks = []model.Task{task}
	}
	return p
}

// spawnPush starts `taskquest calendar push` detached and pipes it the
// payload, so the hook returns before the Calendar API is called.
func spawnPush(p pushPayload) error {
	if len(p.Tasks) == 0 && len(p.Remove) == 0 {
		return nil
	}
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not find self: %w", err)
	}
	args := []string{"calendar", "push"}
	if cfg.Calendar != "" {
		args = append(args, "--calendar", cfg.Calendar)
	}
	cmd := exec.Command(self, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("could not open stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not start background process: %w", err)
	}
	if err := writePayload(stdin, p); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func writePayload(w io.WriteCloser, p pushPayload) error {
	defer w.Close()
	return json.NewEncoder(w).Encode(p)
}

func init() {
	hookCmd.Flags().BoolVar(&hookMirror, "mirror", false, "Also mirror the task to Google Calendar in the background")
}
