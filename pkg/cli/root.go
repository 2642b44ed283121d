package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harrisonrobin/taskquest/pkg/api"
	"github.com/harrisonrobin/taskquest/pkg/config"
	"github.com/harrisonrobin/taskquest/pkg/store"
)

var (
	verbose    bool
	dbDriver   string
	dbDSN      string
	playerFlag string

	cfg     *config.Config
	logger  *zap.Logger
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "taskquest",
		Short: "taskquest - project tracking with an XP ledger",
		Long: `taskquest keeps a team's tasks and pays experience points when they are completed:
more for finishing early, less when late, once per completion.

Tasks come from the HTTP API, Taskwarrior (as an on-modify hook) or Org-mode files,
and can be mirrored to a Google Calendar.`,
		PersistentPreRunE: setup,
		PersistentPostRun: syncLogger,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "dsn", "", "Database file (sqlite) or connection string (postgres)")
	rootCmd.PersistentFlags().StringVarP(&playerFlag, "player", "p", "", "Player id for player commands")

	rootCmd.AddCommand(serveCmd, tasksCmd, xpCmd, checkinCmd, missionsCmd, leaderboardCmd,
		playerCmd, hookCmd, calendarCmd, resetCmd)
}

func syncLogger(cmd *cobra.Command, args []string) {
	if logger != nil {
		_ = logger.Sync()
	}
}

// setup loads the layered configuration (flags last) and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		cfg.Database.Driver = dbDriver
	}
	if flags.Changed("dsn") {
		cfg.Database.DSN = dbDSN
	}
	if flags.Changed("player") {
		cfg.Player = playerFlag
	}

	logger, err = newLogger(cfg.Log, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func newLogger(lc config.Log, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

// openApp opens the configured store and wires the services over it. The
// caller closes the store.
func openApp(ctx context.Context) (store.Store, api.Deps, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, api.Deps{}, err
	}
	logger.Debug("store opened", zap.String("driver", cfg.Database.Driver))
	return st, api.Wire(st, logger), nil
}

// player returns the positional player id, else the configured one.
func player(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.Player != "" {
		return cfg.Player, nil
	}
	return "", errors.New("no player: pass one, use --player or set player in the config file")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(newVersionCmd(version))
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
