package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chatdeck/internal/api"
	"chatdeck/internal/config"
	"chatdeck/internal/store"
	"chatdeck/internal/tui"
)

var (
	serverURL string
	dataDir   string
	timeout   time.Duration
	verbose   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatdeck",
	Short: "Terminal chat client",
	Long: `chatdeck is a terminal client for the chat gateway.

It keeps a local mirror of sessions, messages, and personas, reconciles it
against the server after every write, and renders it as a two-pane TUI.

Run without arguments to open the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, st, err := setup()
		if err != nil {
			return err
		}
		return tui.Run(cfg, st, logger)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write a session transcript to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := setup()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if _, err := st.Init(ctx); err != nil {
			return err
		}
		if err := st.SwitchTo(ctx, api.ID(args[0])); err != nil {
			return err
		}
		return st.Export(os.Stdout)
	},
}

func setup() (config.Config, *store.Store, error) {
	cfg := config.Default()
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if err := cfg.LoadSettings(); err != nil {
		logger.Warn("settings unreadable, using defaults", zap.Error(err))
		cfg.Settings = config.DefaultSettings()
	}

	client := api.NewClient(cfg.ServerURL,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger),
	)
	st := store.New(client, cfg.Settings.Chat, logger)
	return cfg, st, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "gateway base URL (default $CHATDECK_SERVER or http://127.0.0.1:8000)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for settings and exports")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request HTTP timeout (0 waits indefinitely)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(exportCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
