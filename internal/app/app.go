package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/bus"
	"github.com/vovakirdan/lobbyclient/internal/client"
	"github.com/vovakirdan/lobbyclient/internal/config"
	applog "github.com/vovakirdan/lobbyclient/internal/log"
	"github.com/vovakirdan/lobbyclient/internal/service/history"
	"github.com/vovakirdan/lobbyclient/internal/store"
	"github.com/vovakirdan/lobbyclient/internal/store/sqlite"
	"github.com/vovakirdan/lobbyclient/internal/transport"
	transporthttp "github.com/vovakirdan/lobbyclient/internal/transport/http"
)

// App wires together the lobby client, history and the control API.
type App struct {
	cfg     *config.Config
	bus     *bus.Bus
	client  *client.Client
	store   store.Store
	history *history.Service
	server  *stdhttp.Server
	log     *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer, err := transport.New(cfg.Transport, cfg.DialTimeout, cfg.WSPath)
	if err != nil {
		return nil, fmt.Errorf("init transport: %w", err)
	}

	b := bus.New(applog.Component(logger, "bus"))
	c := client.New(client.Options{
		Username:          cfg.Username,
		Password:          cfg.Password,
		LobbyName:         cfg.LobbyName,
		KeepaliveInterval: cfg.KeepaliveInterval,
		PingInterval:      cfg.PingInterval,
		IdleTimeout:       cfg.IdleTimeout,
		QueueSize:         cfg.CommandQueueSize,
		CommandsPerMinute: cfg.CommandsPerMinute,
		SendRate:          cfg.SendRate,
		MaxLineLength:     cfg.MaxLineLength,
		AutoJoinChannels:  cfg.AutoJoinChannels,
	}, dialer, b, applog.Component(logger, "client"))

	a := &App{
		cfg:    cfg,
		bus:    b,
		client: c,
		log:    logger,
	}

	var hist transporthttp.History
	if cfg.HistoryPath != "" {
		st, err := sqlite.New(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.HistoryPath).Msg("history database initialized")

		a.store = st
		a.history = history.New(st, applog.Component(logger, "history"))
		a.history.Attach(b)
		hist = a.history
	}

	if cfg.APIAddr != "" {
		authService := auth.NewService(cfg.APIPasswordHash, &auth.JWTConfig{
			Secret:   []byte(cfg.APISecret),
			Issuer:   cfg.APIIssuer,
			Audience: cfg.APIAudience,
			TTL:      cfg.TokenTTL,
		})
		if !authService.Enabled() {
			logger.Warn().Str("addr", cfg.APIAddr).Msg("control api has no secret, every request is trusted")
		}
		a.server = transporthttp.NewServer(transporthttp.Deps{
			Engine:  c,
			Bus:     b,
			History: hist,
			Auth:    authService,
		}, cfg, applog.Component(logger, "api"))
	}

	return a, nil
}

// Client returns the lobby session engine.
func (a *App) Client() *client.Client {
	return a.client
}

// Bus returns the event bus the client publishes to.
func (a *App) Bus() *bus.Bus {
	return a.bus
}

// Run starts the event consumer and the HTTP server, optionally connects,
// and blocks until context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	busCtx, stopBus := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		defer close(busDone)
		a.bus.Run(busCtx)
	}()

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.log.Info().Str("addr", a.server.Addr).Msg("control api listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	if a.cfg.AutoConnect {
		if err := a.client.Connect(a.cfg.Host, a.cfg.Port); err != nil {
			a.log.Error().Err(err).Msg("auto connect failed")
		}
	}

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if a.server != nil && runErr == nil {
		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		}
	}

	if err := a.client.Disconnect(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("lobby session did not stop in time")
	}

	stopBus()
	<-busDone
	// Deliver the teardown events so history records the session end.
	a.bus.Drain()

	a.cleanup()
	return runErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.history != nil {
		a.history.Detach(a.bus)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
