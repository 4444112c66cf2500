package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/lobbyclient/internal/app"
	"github.com/vovakirdan/lobbyclient/internal/config"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var overrides config.Config
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the lobby client and its control API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(overrides)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().
				Str("server", cfg.Host).
				Int("port", cfg.Port).
				Str("user", cfg.Username).
				Bool("auto_connect", cfg.AutoConnect).
				Msg("starting lobby client")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("lobby client exited with error")
				return err
			}
			logger.Info().Msg("lobby client stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&overrides.Host, "host", "", "lobby server host")
	f.IntVar(&overrides.Port, "port", 0, "lobby server port")
	f.StringVarP(&overrides.Username, "user", "u", "", "lobby account name")
	f.StringVar(&overrides.Transport, "transport", "", "transport: tcp or ws")
	f.StringVar(&overrides.APIAddr, "api-addr", "", "control API listen address")
	f.StringVar(&overrides.HistoryPath, "history", "", "history database path")
	f.BoolVar(&overrides.AutoConnect, "connect", false, "connect on startup")
	f.StringSliceVar(&overrides.AutoJoinChannels, "join", nil, "channels to join after login")
	return cmd
}
