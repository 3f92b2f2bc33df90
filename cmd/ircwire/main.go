package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/ircwire/internal/app"
	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ircwire",
		Short:         "IRC-like chat over a line-based TCP protocol",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newChatCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := log.New("info")
			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Msg("configuration loaded")

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml")
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		host     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the interactive chat client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			logger := log.New(logLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runChat(ctx, host, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "server host to connect to on startup")
	cmd.Flags().StringVar(&logLevel, "log-level", "error", "client log level")
	return cmd
}
