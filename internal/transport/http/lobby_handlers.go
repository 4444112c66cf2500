package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/config"
	"github.com/vovakirdan/lobbyclient/internal/core"
)

// Engine is the part of the lobby client the control API drives.
type Engine interface {
	Connect(host string, port int) error
	Disconnect(ctx context.Context) error
	Submit(cmd core.Command) error
	JoinUserBattle(name, password string) error
	Session() core.Session
	Presence() *core.Presence
}

// LobbyHandlers exposes session, presence and command endpoints.
type LobbyHandlers struct {
	engine Engine
	cfg    *config.Config
	log    *zerolog.Logger
}

// NewLobbyHandlers creates a new lobby handlers instance.
func NewLobbyHandlers(engine Engine, cfg *config.Config, logger *zerolog.Logger) *LobbyHandlers {
	return &LobbyHandlers{
		engine: engine,
		cfg:    cfg,
		log:    logger,
	}
}

// ConnectRequest overrides the configured server address.
type ConnectRequest struct {
	Host string `json:"host"`
	Port int    `json:"port" binding:"omitempty,min=1,max=65535"`
}

// JoinUserBattleRequest joins whatever battle a user is in.
type JoinUserBattleRequest struct {
	Password string `json:"password"`
}

// Session returns the current session snapshot.
// GET /api/session
func (h *LobbyHandlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse(h.engine.Session()))
}

// ListUsers returns online users in announcement order.
// GET /api/users
func (h *LobbyHandlers) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, usersResponse(h.engine.Presence().ListUsers()))
}

// GetUser returns a single user.
// GET /api/users/:name
func (h *LobbyHandlers) GetUser(c *gin.Context) {
	u, err := h.engine.Presence().GetUser(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, userResponse(u))
}

// JoinUserBattle joins the battle the named user is in.
// POST /api/users/:name/join
func (h *LobbyHandlers) JoinUserBattle(c *gin.Context) {
	var req JoinUserBattleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("invalid join request")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	if err := h.engine.JoinUserBattle(c.Param("name"), req.Password); err != nil {
		status, resp := commandStatus(err)
		c.JSON(status, resp)
		return
	}
	c.Status(http.StatusAccepted)
}

// ListBattles returns open battles ordered by id.
// GET /api/battles
func (h *LobbyHandlers) ListBattles(c *gin.Context) {
	battles := h.engine.Presence().ListBattles()
	out := make([]BattleResponse, 0, len(battles))
	for _, b := range battles {
		out = append(out, battleResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

// GetBattle returns one battle.
// GET /api/battles/:id
func (h *LobbyHandlers) GetBattle(c *gin.Context) {
	id, ok := h.battleID(c)
	if !ok {
		return
	}
	b, err := h.engine.Presence().GetBattle(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "battle not found", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, battleResponse(b))
}

// BattleMembers returns the names of a battle's members.
// GET /api/battles/:id/members
func (h *LobbyHandlers) BattleMembers(c *gin.Context) {
	id, ok := h.battleID(c)
	if !ok {
		return
	}
	names, err := h.engine.Presence().BattleMembers(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "battle not found", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *LobbyHandlers) battleID(c *gin.Context) (core.BattleID, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid battle id"})
		return 0, false
	}
	return core.BattleID(id), true
}

// Connect starts a lobby session. The outcome is reported over /ws.
// POST /api/connect
func (h *LobbyHandlers) Connect(c *gin.Context) {
	req := ConnectRequest{Host: h.cfg.Host, Port: h.cfg.Port}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("invalid connect request")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
		if req.Host == "" {
			req.Host = h.cfg.Host
		}
		if req.Port == 0 {
			req.Port = h.cfg.Port
		}
	}

	if err := h.engine.Connect(req.Host, req.Port); err != nil {
		if errors.Is(err, core.ErrAlreadyConnected) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "already_connected"})
			return
		}
		status, resp := commandStatus(err)
		c.JSON(status, resp)
		return
	}

	h.log.Info().Str("host", req.Host).Int("port", req.Port).Msg("connect requested")
	c.JSON(http.StatusAccepted, sessionResponse(h.engine.Session()))
}

// Disconnect ends the lobby session and waits for the teardown.
// POST /api/disconnect
func (h *LobbyHandlers) Disconnect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ShutdownTimeout)
	defer cancel()

	if err := h.engine.Disconnect(ctx); err != nil {
		h.log.Warn().Err(err).Msg("disconnect did not finish")
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "disconnect timed out"})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(h.engine.Session()))
}

// Submit queues a user command.
// POST /api/commands
func (h *LobbyHandlers) Submit(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid command request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cmd, err := req.toCommand()
	if err == nil {
		err = h.engine.Submit(cmd)
	}
	if err != nil {
		status, resp := commandStatus(err)
		h.log.Debug().Err(err).Str("command", req.Kind).Int("status", status).Msg("command rejected")
		c.JSON(status, resp)
		return
	}
	c.Status(http.StatusAccepted)
}
