package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/lobbyclient/internal/config"
	applog "github.com/vovakirdan/lobbyclient/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "lobbyclient",
		Short:        "Spring lobby protocol client",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml or $LOBBY_CONFIG_DEFAULT_PATH)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

// load resolves configuration and builds the logger it asks for.
func (o *rootOptions) load(overrides config.Config) (*config.Config, *zerolog.Logger, error) {
	boot := applog.New(o.levelOr("info"))

	cfg, path, err := config.Load(boot, o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(overrides)
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger := applog.New(cfg.LogLevel)
	logger.Debug().Str("path", path).Msg("config loaded")
	return &cfg, logger, nil
}

func (o *rootOptions) levelOr(fallback string) string {
	if o.logLevel != "" {
		return o.logLevel
	}
	return fallback
}
