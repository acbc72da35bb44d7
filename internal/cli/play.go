package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtsiddons/guessing-game/internal/console"
	"github.com/jtsiddons/guessing-game/internal/daily"
	"github.com/jtsiddons/guessing-game/internal/game"
	"github.com/jtsiddons/guessing-game/internal/history"
)

type playOpts struct {
	low, high uint32
	daily     bool
	record    bool
	player    string
}

func newPlayCmd(st *rootState) *cobra.Command {
	var o playOpts
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one game on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng := st.cfg.Range
			if cmd.Flags().Changed("low") {
				rng.Low = o.low
			}
			if cmd.Flags().Changed("high") {
				rng.High = o.high
			}

			src := newSource()
			mode := history.ModeClassic
			if o.daily {
				src = daily.Source{Date: time.Now(), Salt: st.cfg.DailySalt}
				mode = history.ModeDaily
			}
			g, err := game.New(src, rng)
			if err != nil {
				return err
			}

			var hist *history.Store
			owner := history.CLIOwner(o.player)
			if o.record {
				hist, err = openHistory(st.cfg)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer hist.Close()
				if err := hist.StartGame(cmd.Context(), g, owner, mode); err != nil {
					log.Warn().Err(err).Msg("record game start")
				}
			}

			res, err := console.Play(cmd.InOrStdin(), cmd.OutOrStdout(), g)
			if err != nil {
				return err
			}

			if hist != nil {
				if err := hist.FinishGame(cmd.Context(), g.ID, res.Attempts); err != nil {
					log.Warn().Err(err).Msg("record game result")
				}
				if o.daily {
					r := daily.Result{
						OwnerID:   owner.ID(),
						Date:      daily.DateKey(g.StartedAt),
						Attempts:  res.Attempts,
						ElapsedMs: int(res.Duration.Milliseconds()),
					}
					if err := daily.NewStore(hist.DB()).InsertResult(cmd.Context(), r); err != nil {
						log.Warn().Err(err).Msg("record daily result")
					}
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Uint32Var(&o.low, "low", 0, "lowest possible secret (default from config, 1)")
	f.Uint32Var(&o.high, "high", 0, "highest possible secret (default from config, 100)")
	f.BoolVar(&o.daily, "daily", false, "play today's shared number")
	f.BoolVar(&o.record, "record", false, "save the result to the history database")
	f.StringVar(&o.player, "player", defaultPlayer(), "name recorded with --record")
	return cmd
}

func defaultPlayer() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}
