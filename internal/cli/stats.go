package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtsiddons/guessing-game/internal/daily"
	"github.com/jtsiddons/guessing-game/internal/history"
)

func newStatsCmd(st *rootState) *cobra.Command {
	var (
		player string
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recorded games for a player",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hist, err := openHistory(st.cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer hist.Close()

			owner := history.CLIOwner(player)
			sum, err := hist.Summary(cmd.Context(), owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Player: %s\n", player)
			fmt.Fprintf(out, "Played: %d  Won: %d  Best: %d  Avg: %.2f\n",
				sum.Played, sum.Won, sum.BestAttempts, sum.AvgAttempts)

			if recent <= 0 {
				return nil
			}
			games, err := hist.RecentGames(cmd.Context(), owner, recent)
			if err != nil {
				return err
			}
			if len(games) == 0 {
				fmt.Fprintln(out, "(no games recorded)")
				return nil
			}
			fmt.Fprintln(out)
			for _, g := range games {
				fmt.Fprintf(out, "- %s  %-7s %d..%d  %-14s attempts=%d\n",
					g.StartedAt, g.Mode, g.Low, g.High, g.Status, g.Attempts)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&player, "player", defaultPlayer(), "player name used with play --record")
	cmd.Flags().IntVarP(&recent, "recent", "n", 10, "number of recent games to list")
	return cmd
}

func newLeaderboardCmd(st *rootState) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the daily leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = daily.DateKey(time.Now())
			} else if _, err := time.Parse("2006-01-02", date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}

			hist, err := openHistory(st.cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer hist.Close()

			rows, err := daily.NewStore(hist.DB()).Leaderboard(cmd.Context(), date, daily.DefaultLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daily %s\n\n", date)
			if len(rows) == 0 {
				fmt.Fprintln(out, "(no results yet)")
				return nil
			}
			for i, r := range rows {
				name := r.Username
				if name == "" {
					name = r.OwnerID
				}
				fmt.Fprintf(out, "%2d. %-24s %3d attempts  %6.1fs\n", i+1, name, r.Attempts, float64(r.ElapsedMs)/1000)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today, UTC)")
	return cmd
}
