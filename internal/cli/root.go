package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/factory"
	"github.com/mcoot/archive/internal/menu"
	redisstorage "github.com/mcoot/archive/internal/storage/redis"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()
	flags := DefaultConfig()
	configPath := getEnvOrDefault("ARCHIVE_CONFIG", defaultConfigFile())

	rootCmd := &cobra.Command{
		Use:   "archive",
		Short: "Terminal game collection with tracked play sessions",
		Long: `archive is a collection of terminal games for registered users.

Run without a subcommand to log in and play. Every play is recorded as a
game session with its score, duration and per-move telemetry.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			required := cmd.Flags().Changed("config") || os.Getenv("ARCHIVE_CONFIG") != ""
			loaded, err := LoadConfig(configPath, required)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags().Changed, loaded, flags)
			if err := loaded.Validate(); err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
		RunE:         runInteractive,
		SilenceUsage: true,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", configPath, "Config file (env: ARCHIVE_CONFIG)")
	pf.StringVar(&flags.Storage, "storage", flags.Storage, "Storage backend: memory, sqlite, redis (env: ARCHIVE_STORAGE)")
	pf.StringVar(&flags.DBPath, "db-path", flags.DBPath, "SQLite database file (env: ARCHIVE_DB_PATH)")
	pf.StringVar(&flags.RedisURL, "redis-url", flags.RedisURL, "Redis URL (env: ARCHIVE_REDIS_URL)")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error (env: ARCHIVE_LOG_LEVEL)")
	pf.StringVar(&flags.LogFile, "log-file", flags.LogFile, "Log file (env: ARCHIVE_LOG_FILE)")
	pf.IntVar(&flags.HistoryLimit, "history-limit", flags.HistoryLimit, "Sessions shown in game history (env: ARCHIVE_HISTORY_LIMIT)")
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text, json")
	pf.BoolVar(&flags.NoColor, "no-color", flags.NoColor, "Disable colored output (env: ARCHIVE_NO_COLOR)")

	// Add subcommands
	rootCmd.AddCommand(newGamesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newMigrateCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// applyFlags copies the flags the user actually set over target
func applyFlags(changed func(name string) bool, target, flags *Config) {
	overrides := []struct {
		name  string
		apply func()
	}{
		{"storage", func() { target.Storage = flags.Storage }},
		{"db-path", func() { target.DBPath = flags.DBPath }},
		{"redis-url", func() { target.RedisURL = flags.RedisURL }},
		{"log-level", func() { target.LogLevel = flags.LogLevel }},
		{"log-file", func() { target.LogFile = flags.LogFile }},
		{"history-limit", func() { target.HistoryLimit = flags.HistoryLimit }},
		{"output", func() { target.Output = flags.Output }},
		{"no-color", func() { target.NoColor = flags.NoColor }},
	}
	for _, o := range overrides {
		if changed(o.name) {
			o.apply()
		}
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	logger, closeLog := newLogger(cfg, cmd.ErrOrStderr())
	defer closeLog()

	app, err := openApp(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer app.Close()

	var screen *console.Console
	if isStdio(cmd) {
		var stop func()
		screen, stop = console.NewTerminal(cfg.NoColor)
		defer stop()
	} else {
		screen = console.New(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	logger.Info("interactive session started", slog.String("storage", cfg.Storage))
	return app.Menu(screen, menu.Config{HistoryLimit: cfg.HistoryLimit}).Run(cmd.Context())
}

func openApp(ctx context.Context, logger *slog.Logger) (*factory.App, error) {
	fcfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage,
		SQLitePath:  cfg.DBPath,
	}
	if cfg.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		fcfg.RedisConfig = &redisCfg
	}
	return factory.New(ctx, fcfg)
}

// isStdio reports whether cmd talks to the process's own stdin and stdout
func isStdio(cmd *cobra.Command) bool {
	in, ok := cmd.InOrStdin().(*os.File)
	return ok && in == os.Stdin && cmd.OutOrStdout() == io.Writer(os.Stdout)
}

// promptConsole returns a console for one-off prompts written to out.
// Passwords are hidden when stdin is a terminal.
func promptConsole(cmd *cobra.Command, out io.Writer) *console.Console {
	if isStdio(cmd) {
		if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
			return console.New(os.Stdin, out, console.WithPasswordTerminal(fd))
		}
	}
	return console.New(cmd.InOrStdin(), out)
}
