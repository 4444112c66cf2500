package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/bus"
	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/utils"
)

// Frame types sent over /ws.
const (
	FrameSession = "session"
	FrameEvent   = "event"
	FrameDropped = "dropped"
	FrameAck     = "ack"
	FrameError   = "error"
)

// Frame is one server to client WebSocket message.
type Frame struct {
	Type    string           `json:"type"`
	Ref     string           `json:"ref,omitempty"`
	Session *SessionResponse `json:"session,omitempty"`
	Event   *EventResponse   `json:"event,omitempty"`
	Dropped uint64           `json:"dropped,omitempty"`
	Error   *ErrorResponse   `json:"error,omitempty"`
}

// WSCommand is one client to server WebSocket message. Ref is echoed in the
// ack or error frame.
type WSCommand struct {
	Ref string `json:"ref,omitempty"`
	CommandRequest
}

// WSHandler upgrades HTTP connections and streams bus events to them. It is
// mounted outside the gin router because the upgrade needs to hijack the
// raw connection.
type WSHandler struct {
	engine Engine
	bus    *bus.Bus
	auth   *auth.Service
	buffer int
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. buffer bounds the events
// queued per connection; a consumer that falls further behind loses events
// and is told how many.
func NewWSHandler(engine Engine, b *bus.Bus, authService *auth.Service, buffer int, logger *zerolog.Logger) http.Handler {
	if buffer <= 0 {
		buffer = 256
	}
	return &WSHandler{engine: engine, bus: b, auth: authService, buffer: buffer, log: logger}
}

type wsConn struct {
	id         string
	conn       *websocket.Conn
	events     chan core.Event
	dropped    atomic.Uint64
	canCommand bool
}

// offer queues ev without blocking the bus consumer and counts it as
// dropped when the connection's buffer is full.
func (wc *wsConn) offer(ev core.Event) bool {
	select {
	case wc.events <- ev:
		return true
	default:
		wc.dropped.Add(1)
		return false
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// ServeHTTP serves GET /ws. The token needs scope read; commands sent over
// the socket additionally need scope command.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	claims, reason := authenticate(h.auth, r, h.log)
	if claims == nil {
		writeJSONError(w, http.StatusUnauthorized, reason)
		return
	}
	if !claims.Can(auth.ScopeRead) {
		writeJSONError(w, http.StatusForbidden, "token lacks scope "+auth.ScopeRead)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	wc := &wsConn{
		id:         utils.NewID(),
		conn:       conn,
		events:     make(chan core.Event, h.buffer),
		canCommand: claims.Can(auth.ScopeCommand),
	}
	log := h.log.With().
		Str("ws_id", utils.ShortID(wc.id)).
		Str("operator", claims.Operator).
		Logger()
	log.Info().Msg("ws connected")

	sub := h.bus.SubscribeAll(func(ev core.Event) {
		if !wc.offer(ev) && wc.dropped.Load() == 1 {
			log.Warn().Msg("ws consumer is behind, dropping events")
		}
	})
	defer h.bus.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := sessionResponse(h.engine.Session())
	if err := wsjson.Write(ctx, conn, Frame{Type: FrameSession, Session: &session}); err != nil {
		log.Debug().Err(err).Msg("write ws session")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, wc, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, wc, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason = "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, wc *wsConn, log *zerolog.Logger) error {
	for {
		var in WSCommand
		if err := wsjson.Read(ctx, wc.conn, &in); err != nil {
			return err
		}

		reply := Frame{Type: FrameAck, Ref: in.Ref}
		if err := h.submit(wc, in.CommandRequest); err != nil {
			_, resp := commandStatus(err)
			reply = Frame{Type: FrameError, Ref: in.Ref, Error: &resp}
			log.Debug().Err(err).Str("command", in.Kind).Msg("ws command rejected")
		}
		if err := wsjson.Write(ctx, wc.conn, reply); err != nil {
			return err
		}
	}
}

func (h *WSHandler) submit(wc *wsConn, req CommandRequest) error {
	if !wc.canCommand {
		return &core.CommandError{Code: "forbidden", Message: "token lacks scope " + auth.ScopeCommand}
	}
	cmd, err := req.toCommand()
	if err != nil {
		return err
	}
	return h.engine.Submit(cmd)
}

func (h *WSHandler) writeLoop(ctx context.Context, wc *wsConn, log *zerolog.Logger) error {
	for {
		select {
		case ev := <-wc.events:
			if n := wc.dropped.Swap(0); n > 0 {
				if err := wsjson.Write(ctx, wc.conn, Frame{Type: FrameDropped, Dropped: n}); err != nil {
					return err
				}
			}
			resp := eventResponse(ev)
			if err := wsjson.Write(ctx, wc.conn, Frame{Type: FrameEvent, Event: &resp}); err != nil {
				log.Debug().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
