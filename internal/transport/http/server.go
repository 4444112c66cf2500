// Package http serves the local control API: session and presence queries,
// command submission and a WebSocket event stream.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/bus"
	"github.com/vovakirdan/lobbyclient/internal/config"
)

// Deps groups what the control API serves.
type Deps struct {
	Engine  Engine
	Bus     *bus.Bus
	History History
	Auth    *auth.Service
}

// NewServer builds an HTTP server with the control API routes.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(RateLimitMiddleware(cfg.APIRateLimit, logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	router.POST("/auth/token", apiHandlers.Token)

	authenticated := AuthMiddleware(deps.Auth, logger)
	read := RequireScope(auth.ScopeRead)
	command := RequireScope(auth.ScopeCommand)

	api := router.Group("/api")
	api.Use(authenticated)
	{
		lobby := NewLobbyHandlers(deps.Engine, cfg, logger)
		api.GET("/session", read, lobby.Session)
		api.GET("/users", read, lobby.ListUsers)
		api.GET("/users/:name", read, lobby.GetUser)
		api.POST("/users/:name/join", command, lobby.JoinUserBattle)
		api.GET("/battles", read, lobby.ListBattles)
		api.GET("/battles/:id", read, lobby.GetBattle)
		api.GET("/battles/:id/members", read, lobby.BattleMembers)
		api.POST("/connect", command, lobby.Connect)
		api.POST("/disconnect", command, lobby.Disconnect)
		api.POST("/commands", command, lobby.Submit)

		if deps.History != nil {
			history := NewHistoryHandlers(deps.History, logger)
			api.GET("/history", read, history.ListMessages)
			api.GET("/history/sessions", read, history.ListSessions)
		}
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(deps.Engine, deps.Bus, deps.Auth, cfg.EventBuffer, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.APIAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
