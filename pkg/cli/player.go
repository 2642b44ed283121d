package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskquest/pkg/model"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin [PLAYER]",
	Short: "Record today's login and pay the streak bonus",
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

		out := cmd.OutOrStdout()
		entry, err := deps.Streak.CheckIn(ctx, id)
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Fprintln(out, mutedStyle.Render("Already checked in today."))
		} else {
			renderEntry(out, entry)
			paid, err := deps.Missions.Check(ctx, id)
			if err != nil {
				return err
			}
			for i := range paid {
				renderEntry(out, &paid[i])
			}
		}

		days, err := deps.Streak.Current(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Streak: %s\n", xpStyle.Render(fmt.Sprintf("%d days", days)))
		return nil
	},
}

var missionsCmd = &cobra.Command{
	Use:   "missions [PLAYER]",
	Short: "Show mission progress for the current period",
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

		progress, err := deps.Missions.Progress(ctx, id)
		if err != nil {
			return err
		}
		renderProgress(cmd.OutOrStdout(), progress)
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank players by XP earned this season",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, deps, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		s, standings, err := deps.Analytics.Leaderboard(ctx)
		if err != nil {
			return err
		}
		renderLeaderboard(cmd.OutOrStdout(), s, standings)
		return nil
	},
}

var playerName, playerEmail string

var playerCmd = &cobra.Command{
	Use:   "player ID",
	Short: "Register a player or update their name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, _, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p := model.Player{ID: args[0], Name: playerName, Email: playerEmail}
		if p.Name == "" {
			p.Name = p.ID
		}
		if err := st.UpsertPlayer(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Player %s saved.\n", p.ID)
		return nil
	},
}

func init() {
	playerCmd.Flags().StringVar(&playerName, "name", "", "Display name (task owners may use it)")
	playerCmd.Flags().StringVar(&playerEmail, "email", "", "Email address")
}
