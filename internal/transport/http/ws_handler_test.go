package http

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/core"
)

func dialWS(ctx context.Context, t *testing.T, ts *testServer, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		wsURL += "?token=" + token
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	var hello Frame
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	require.Equal(t, FrameSession, hello.Type)
	require.NotNil(t, hello.Session)
	return conn
}

func TestWebSocketStreamsEventsInOrder(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialWS(ctx, t, ts, "")

	// The subscription is registered before the session frame is written.
	ts.bus.Publish(core.Event{Kind: core.EventConnected, Connected: true})
	ts.bus.Publish(core.Event{Kind: core.EventSaid, Channel: "main", From: "bob", Text: "hi there"})
	ts.bus.Publish(core.Event{Kind: core.EventUserLeft, User: core.NewUser("bob", "US")})

	var frames []Frame
	for range 3 {
		var f Frame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		require.Equal(t, FrameEvent, f.Type)
		frames = append(frames, f)
	}

	require.Equal(t, "connected", frames[0].Event.Kind)
	require.NotNil(t, frames[0].Event.Connected)
	require.True(t, *frames[0].Event.Connected)

	require.Equal(t, "said", frames[1].Event.Kind)
	require.Equal(t, "main", frames[1].Event.Channel)
	require.Equal(t, "bob", frames[1].Event.From)
	require.Equal(t, "hi there", frames[1].Event.Text)

	require.Equal(t, "user_left", frames[2].Event.Kind)
	require.Equal(t, "bob", frames[2].Event.User.Name)
	require.Less(t, frames[0].Event.Seq, frames[1].Event.Seq)
	require.Less(t, frames[1].Event.Seq, frames[2].Event.Seq)
}

func TestWebSocketCommands(t *testing.T) {
	ts := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialWS(ctx, t, ts, "")

	require.NoError(t, wsjson.Write(ctx, conn, WSCommand{
		Ref:            "1",
		CommandRequest: CommandRequest{Kind: "join_channel", Channel: "main"},
	}))
	var ack Frame
	require.NoError(t, wsjson.Read(ctx, conn, &ack))
	require.Equal(t, FrameAck, ack.Type)
	require.Equal(t, "1", ack.Ref)
	require.Equal(t, []core.Command{core.JoinChannel("main", "")}, ts.engine.commands())

	require.NoError(t, wsjson.Write(ctx, conn, WSCommand{
		Ref:            "2",
		CommandRequest: CommandRequest{Kind: "say", Channel: "main"},
	}))
	var rejected Frame
	require.NoError(t, wsjson.Read(ctx, conn, &rejected))
	require.Equal(t, FrameError, rejected.Type)
	require.Equal(t, "2", rejected.Ref)
	require.Equal(t, core.ErrCodeBadRequest, rejected.Error.Code)
}

func TestWebSocketReadOnlyToken(t *testing.T) {
	authService := newAuthService(t)
	ts := startTestServer(t, authService)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1)+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)

	token, err := auth.GenerateToken(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}, "viewer", auth.ScopeRead)
	require.NoError(t, err)

	conn := dialWS(ctx, t, ts, token)
	require.NoError(t, wsjson.Write(ctx, conn, WSCommand{CommandRequest: CommandRequest{Kind: "ping"}}))

	var f Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	require.Equal(t, FrameError, f.Type)
	require.Equal(t, "forbidden", f.Error.Code)
	require.Empty(t, ts.engine.commands())
}

func TestSlowConsumerDropsEvents(t *testing.T) {
	wc := &wsConn{events: make(chan core.Event, 2)}

	require.True(t, wc.offer(core.Event{Kind: core.EventSaid, Text: "a"}))
	require.True(t, wc.offer(core.Event{Kind: core.EventSaid, Text: "b"}))
	require.False(t, wc.offer(core.Event{Kind: core.EventSaid, Text: "c"}))
	require.False(t, wc.offer(core.Event{Kind: core.EventSaid, Text: "d"}))
	require.Equal(t, uint64(2), wc.dropped.Load())

	require.Equal(t, "a", (<-wc.events).Text)
	require.True(t, wc.offer(core.Event{Kind: core.EventSaid, Text: "e"}))
}

func TestWebSocketRequiresReadScope(t *testing.T) {
	ts := startTestServer(t, newAuthService(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := auth.GenerateToken(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}, "bot", auth.ScopeCommand)
	require.NoError(t, err)

	_, resp, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1)+"/ws?token="+token, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 403, resp.StatusCode)

	// The REST routes behind the same mux keep working.
	status, _ := ts.do(t, "GET", "/health", "", "")
	require.Equal(t, 200, status)
}
