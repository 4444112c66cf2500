package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// History is the read side of the session log.
type History interface {
	Messages(ctx context.Context, filter store.MessageFilter) ([]*store.Message, error)
	Sessions(ctx context.Context, limit int) ([]*store.Session, error)
}

// HistoryHandlers exposes the session log.
type HistoryHandlers struct {
	history History
	log     *zerolog.Logger
}

// NewHistoryHandlers creates a new history handlers instance.
func NewHistoryHandlers(history History, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{
		history: history,
		log:     logger,
	}
}

// ListMessages returns logged lines in chronological order.
// GET /api/history?limit=50&channel=main&session=ID&kind=channel&before=ID
func (h *HistoryHandlers) ListMessages(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	filter := store.MessageFilter{
		SessionID: c.Query("session"),
		Channel:   c.Query("channel"),
		Kind:      store.MessageKind(c.Query("kind")),
		Limit:     limit,
	}
	if before := c.Query("before"); before != "" {
		id, err := strconv.ParseInt(before, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before parameter"})
			return
		}
		filter.BeforeID = &id
	}

	msgs, err := h.history.Messages(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

// ListSessions returns logged sessions, newest first.
// GET /api/history/sessions?limit=20
func (h *HistoryHandlers) ListSessions(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	sessions, err := h.history.Sessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]HistorySessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, historySessionResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

func queryLimit(c *gin.Context) (int, bool) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
			return 0, false
		}
		limit = min(n, maxHistoryLimit)
	}
	return limit, true
}
