package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/auth"
	"github.com/harrisonrobin/taskquest/pkg/colors"
	"github.com/harrisonrobin/taskquest/pkg/config"
	"github.com/harrisonrobin/taskquest/pkg/google"
	"github.com/harrisonrobin/taskquest/pkg/index"
	"github.com/harrisonrobin/taskquest/pkg/overdue"
	"github.com/harrisonrobin/taskquest/pkg/store"
)

var calendarName string

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Mirror tasks to a Google Calendar",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd, args); err != nil {
			return err
		}
		if cmd.Flags().Changed("calendar") {
			cfg.Calendar = calendarName
		}
		if cfg.Calendar == "" {
			cfg.Calendar = config.DefaultCalendar
		}
		return nil
	},
}

var calendarAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Google Calendar, replacing any stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := auth.ResetToken(dir); err != nil {
			return err
		}
		if _, err := auth.GetCalendarService(cmd.Context(), dir, logger); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", auth.TokenPath(dir))
		return nil
	},
}

var calendarSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Set the default calendar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Calendar = args[0]
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default calendar set to: %s\n", args[0])
		return nil
	},
}

var calendarSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror every stored task with a date to the calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, deps, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tasks, err := deps.Tracker.Tasks(ctx, store.TaskFilter{})
		if err != nil {
			return err
		}
		m, err := newMirror(ctx)
		if err != nil {
			return err
		}
		removed, err := m.Prune(ctx, tasks)
		if err != nil {
			logger.Warn("removing events of deleted tasks", zap.Error(err))
		}
		if err := m.Sync(ctx, tasks); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d tasks to %s, removed %d stale events.\n", len(tasks), cfg.Calendar, removed)
		return nil
	},
}

// calendarPushCmd is the background half of `hook --mirror`.
var calendarPushCmd = &cobra.Command{
	Use:    "push",
	Short:  "Apply a calendar payload read from stdin",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p pushPayload
		if err := json.NewDecoder(cmd.InOrStdin()).Decode(&p); err != nil {
			return fmt.Errorf("background: parsing payload: %w", err)
		}
		ctx := cmd.Context()
		m, err := newMirror(ctx)
		if err != nil {
			logger.Error("background: creating calendar client", zap.Error(err))
			return err
		}
		for _, id := range p.Remove {
			if err := m.Remove(ctx, id); err != nil {
				logger.Warn("background: removing event", zap.String("task", id), zap.Error(err))
			}
		}
		return m.Sync(ctx, p.Tasks)
	},
}

// newMirror connects to the configured calendar. Missing local state only
// costs lookups, so it is logged and skipped.
func newMirror(ctx context.Context) (*google.Mirror, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	idx, err := index.NewEventIndex(dir)
	if err != nil {
		logger.Warn("failed to initialize event index", zap.Error(err))
		idx = nil
	}
	table, err := overdue.NewTable(dir)
	if err != nil {
		logger.Warn("failed to initialize overdue sweep table", zap.Error(err))
		table = nil
	}
	cache, err := colors.NewColorCache(dir)
	if err != nil {
		logger.Warn("failed to initialize owner colors", zap.Error(err))
		cache = nil
	}

	client, err := google.NewClient(ctx, dir, cfg.Calendar, logger)
	if err != nil {
		return nil, err
	}
	return google.NewMirror(client, idx, table, cache, logger), nil
}

func init() {
	calendarCmd.PersistentFlags().StringVarP(&calendarName, "calendar", "c", "", "Google Calendar name (overrides config)")
	calendarCmd.AddCommand(calendarAuthCmd, calendarSetCmd, calendarSyncCmd, calendarPushCmd)
}
