package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcoot/archive/internal/factory"
	"github.com/mcoot/archive/internal/storage/sqlite"
)

func newMigrateCmd() *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Storage != factory.StorageTypeSQLite {
				return errors.New("migrate only applies to sqlite storage")
			}
			ctx := cmd.Context()
			logger, closeLog := newLogger(cfg, cmd.ErrOrStderr())
			defer closeLog()

			db, err := sqlite.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator, err := sqlite.NewMigratorFor(db)
			if err != nil {
				return err
			}
			from, err := migrator.Version(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			if err := migrator.Migrate(ctx, target); err != nil {
				return err
			}
			to, err := migrator.Version(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}

			logger.Info("schema migrated",
				slog.String("path", cfg.DBPath),
				slog.Int("from", from),
				slog.Int("to", to))
			NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(MigrationResult{
				Path:        cfg.DBPath,
				FromVersion: from,
				ToVersion:   to,
			})
			return nil
		},
	}

	cmd.Flags().IntVar(&target, "target", sqlite.LatestVersion, "Target schema version, -1 for latest, 0 to roll everything back")
	return cmd
}
