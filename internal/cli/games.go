package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/factory"
	"github.com/mcoot/archive/internal/games"
)

func newGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List the available games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := newLogger(cfg, cmd.ErrOrStderr())
			defer closeLog()

			// Listing never plays, so the games get a console with nothing behind it
			catalog := games.Discover(factory.DefaultRegistry(), games.Deps{
				Console: console.New(cmd.InOrStdin(), io.Discard),
				Logger:  logger,
			}, logger)

			entries := make([]GameEntry, 0, catalog.Len())
			for _, info := range catalog.Infos() {
				entries = append(entries, newGameEntry(info))
			}
			NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(entries)
			return nil
		},
	}
}
