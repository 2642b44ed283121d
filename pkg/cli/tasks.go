package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/orgmode"
	"github.com/harrisonrobin/taskquest/pkg/store"
	"github.com/harrisonrobin/taskquest/pkg/taskwarrior"
	"github.com/harrisonrobin/taskquest/pkg/tracker"
)

var (
	listOwner    string
	listStatus   string
	importTW     bool
	importOrg    []string
	importOwner  string
	summaryOwner string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List, save and import tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, deps, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tasks, err := deps.Tracker.Tasks(ctx, store.TaskFilter{Owner: listOwner, Status: model.Status(listStatus)})
		if err != nil {
			return err
		}
		renderTasks(cmd.OutOrStdout(), tasks)
		return nil
	},
}

var tasksSaveCmd = &cobra.Command{
	Use:   "save FILE|-",
	Short: "Save a JSON array of tasks and pay XP for completions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		var tasks []model.Task
		if err := json.NewDecoder(r).Decode(&tasks); err != nil {
			return fmt.Errorf("decoding tasks: %w", err)
		}
		return saveTasks(cmd, tasks)
	},
}

var tasksImportCmd = &cobra.Command{
	Use:   "import [FILTER...]",
	Short: "Import tasks from Taskwarrior or Org-mode files",
	Long: `Import tasks from Taskwarrior (--taskwarrior, remaining arguments are a task filter)
or from Org-mode files (--org). Headlines need an :ID: property to be imported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var tasks []model.Task
		switch {
		case importTW:
			twTasks, err := taskwarrior.NewClient().GetTasks(cmd.Context(), args)
			if err != nil {
				return err
			}
			for _, tw := range twTasks {
				if t, ok := taskwarrior.ToTask(tw, defaultOwner()); ok {
					tasks = append(tasks, t)
				}
			}
		case len(importOrg) > 0:
			parsed, err := orgmode.ParseFiles(importOrg)
			if err != nil {
				return err
			}
			for i := range parsed {
				if parsed[i].Owner == "" {
					parsed[i].Owner = defaultOwner()
				}
			}
			if importOwner != "" {
				parsed = orgmode.FilterTasks(parsed, importOwner)
			}
			tasks = parsed
		default:
			return errors.New("choose a source: --taskwarrior or --org FILE")
		}
		return saveTasks(cmd, tasks)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show task counts and delay statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, deps, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := deps.Analytics.Summary(ctx, summaryOwner)
		if err != nil {
			return err
		}
		renderSummary(cmd.OutOrStdout(), s)
		return nil
	},
}

func defaultOwner() string {
	return cfg.Player
}

// saveTasks stores tasks through the tracker and prints the awards. Ledger
// failures are reported but the tasks stay saved.
func saveTasks(cmd *cobra.Command, tasks []model.Task, opts ...tracker.SaveOption) error {
	ctx := cmd.Context()
	st, deps, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := deps.Tracker.SaveTasks(ctx, tasks, opts...)
	if err != nil && !errors.Is(err, tracker.ErrLedger) {
		return err
	}
	if err != nil {
		logger.Warn("tasks saved but XP was not fully recorded", zap.Error(err))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved %d tasks.\n", len(res.Tasks))
	for i := range res.Awards {
		renderEntry(out, &res.Awards[i])
	}
	return nil
}

func init() {
	tasksListCmd.Flags().StringVar(&listOwner, "owner", "", "Only tasks owned by this player")
	tasksListCmd.Flags().StringVar(&listStatus, "status", "", "Only tasks with this status")

	tasksImportCmd.Flags().BoolVar(&importTW, "taskwarrior", false, "Import from Taskwarrior")
	tasksImportCmd.Flags().StringSliceVar(&importOrg, "org", nil, "Org-mode files to import")
	tasksImportCmd.Flags().StringVar(&importOwner, "owner", "", "Only import Org tasks owned by this player")

	summaryCmd.Flags().StringVar(&summaryOwner, "owner", "", "Only tasks owned by this player")

	tasksCmd.AddCommand(tasksListCmd, tasksSaveCmd, tasksImportCmd, summaryCmd)
}
