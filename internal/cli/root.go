package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtsiddons/guessing-game/internal/config"
	"github.com/jtsiddons/guessing-game/internal/game"
	"github.com/jtsiddons/guessing-game/internal/history"
)

// newSource is swapped in tests to fix the secret.
var newSource = func() game.RandomSource { return game.CryptoSource{} }

// rootState carries what PersistentPreRunE resolved to the subcommands.
type rootState struct {
	configPath string
	dbPath     string
	cfg        config.Config
}

// Execute runs the command line; errors are returned for main to report.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Running it without a subcommand plays
// a game on the terminal.
func NewRootCmd() *cobra.Command {
	st := &rootState{}

	cmd := &cobra.Command{
		Use:           "guess",
		Short:         "Guess the secret number",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			if st.dbPath != "" {
				cfg.DBPath = st.dbPath
			}
			st.cfg = cfg
			setupLogging(cfg.LogLevel)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&st.configPath, "config", "", "YAML config file (default $GUESS_CONFIG)")
	cmd.PersistentFlags().StringVar(&st.dbPath, "db", "", "SQLite history file (default from config)")

	play := newPlayCmd(st)
	cmd.RunE = play.RunE
	cmd.Flags().AddFlagSet(play.Flags())

	cmd.AddCommand(play, newServeCmd(st), newStatsCmd(st), newLeaderboardCmd(st))
	return cmd
}

// setupLogging points the global logger at stderr in human-readable form so
// it never interleaves with the game on stdout.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func openHistory(cfg config.Config) (*history.Store, error) {
	return history.Open(cfg.DBPath)
}
