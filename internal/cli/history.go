package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/archive/internal/services/auth"
)

func newHistoryCmd() *cobra.Command {
	var (
		email string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a user's recent game sessions",
		Long: `Show a user's recent game sessions.

The password is read from the terminal, or from the first line of stdin
when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, closeLog := newLogger(cfg, cmd.ErrOrStderr())
			defer closeLog()

			app, err := openApp(ctx, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			// Prompts go to stderr so stdout stays parseable
			password, err := promptConsole(cmd, cmd.ErrOrStderr()).Password(ctx, "Password")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			session, err := app.AuthService.Login(ctx, email, password)
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return err
			}
			defer app.AuthService.Logout(session)

			if limit <= 0 {
				limit = cfg.HistoryLimit
			}
			sessions, err := app.Tracker.UserHistory(ctx, session.UserID(), limit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			history := History{Email: session.User.Email, Sessions: make([]HistoryEntry, len(sessions))}
			for i, s := range sessions {
				history.Sessions[i] = newHistoryEntry(s)
			}
			NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(history)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum sessions to show (default: history limit from config)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
