package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtsiddons/guessing-game/internal/httpserver"
	"github.com/jtsiddons/guessing-game/internal/store"
)

func newServeCmd(st *rootState) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game over HTTP",
		RunE: func(_ *cobra.Command, _ []string) error {
			if port != "" {
				st.cfg.Port = port
			}
			if err := st.cfg.Validate(); err != nil {
				return err
			}

			hist, err := openHistory(st.cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer hist.Close()

			srv := httpserver.New(store.NewMemoryStore(store.DefaultIdleTTL), hist, st.cfg, newSource())
			log.Info().Str("port", st.cfg.Port).Str("db", st.cfg.DBPath).Msg("starting guess server")
			return srv.Start(":" + st.cfg.Port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default from config)")
	return cmd
}
