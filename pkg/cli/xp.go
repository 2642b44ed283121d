package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

var grantReason string

var xpCmd = &cobra.Command{
	Use:   "xp [PLAYER]",
	Short: "Show a player's XP history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := player(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		st, deps, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		renderHistory(cmd.OutOrStdout(), id, deps.Ledger.History(ctx, id))
		return nil
	},
}

var xpGrantCmd = &cobra.Command{
	Use:   "grant XP [PLAYER]",
	Short: "Grant (or with a negative amount, deduct) XP by hand",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid XP amount %q: %w", args[0], err)
		}
		id, err := player(args[1:])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		st, deps, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		e := model.XPEntry{PlayerID: id, XP: amount, Source: model.SourceManual, Description: grantReason}
		if err := deps.Ledger.Append(ctx, &e); err != nil {
			return err
		}
		renderEntry(cmd.OutOrStdout(), &e)
		return nil
	},
}

func init() {
	xpGrantCmd.Flags().StringVarP(&grantReason, "reason", "r", "Manual adjustment", "Description of the grant")
	xpCmd.AddCommand(xpGrantCmd)
}
