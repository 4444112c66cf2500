package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/bus"
	"github.com/vovakirdan/lobbyclient/internal/config"
	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/store"
)

type fakeEngine struct {
	mu        sync.Mutex
	presence  *core.Presence
	session   core.Session
	submitted []core.Command
	submitErr error
	connected []string
}

func newFakeEngine() *fakeEngine {
	p := core.NewPresence()
	p.AddUser(core.NewUser("alice", "DE"))
	p.AddUser(core.NewUser("bob", "US"))
	p.AddBattle(core.Battle{ID: 7, Founder: "bob", Title: "Open game", Map: "Delta", Passworded: true})
	return &fakeEngine{
		presence: p,
		session:  core.Session{Phase: core.PhaseDisconnected},
	}
}

func (e *fakeEngine) Connect(host string, port int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Phase != core.PhaseDisconnected {
		return core.ErrAlreadyConnected
	}
	e.session = core.Session{ID: "s1", Phase: core.PhaseConnecting, Host: host, Port: port}
	e.connected = append(e.connected, host)
	return nil
}

func (e *fakeEngine) Disconnect(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = core.Session{Phase: core.PhaseDisconnected}
	return nil
}

func (e *fakeEngine) Submit(cmd core.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.submitErr != nil {
		return e.submitErr
	}
	e.submitted = append(e.submitted, cmd)
	return nil
}

func (e *fakeEngine) JoinUserBattle(name, password string) error {
	u, err := e.presence.GetUser(name)
	if err != nil {
		return err
	}
	return e.Submit(core.JoinBattle(u.JoinedBattle, password))
}

func (e *fakeEngine) Session() core.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (e *fakeEngine) Presence() *core.Presence {
	return e.presence
}

func (e *fakeEngine) commands() []core.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Command(nil), e.submitted...)
}

type fakeHistory struct {
	filter store.MessageFilter
}

func (h *fakeHistory) Messages(_ context.Context, filter store.MessageFilter) ([]*store.Message, error) {
	h.filter = filter
	return []*store.Message{
		{ID: 1, SessionID: "s1", Kind: store.MessageKindChannel, Channel: "main", Sender: "bob", Body: "hi"},
	}, nil
}

func (h *fakeHistory) Sessions(context.Context, int) ([]*store.Session, error) {
	return []*store.Session{{ID: "s1", Host: "lobby", Username: "alice"}}, nil
}

type testServer struct {
	*httptest.Server
	engine  *fakeEngine
	bus     *bus.Bus
	history *fakeHistory
}

func startTestServer(t *testing.T, authService *auth.Service, tweak ...func(*config.Config)) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.APIAddr = ":0"
	cfg.ShutdownTimeout = time.Second
	for _, fn := range tweak {
		fn(&cfg)
	}
	if authService == nil {
		authService = auth.NewService("", &auth.JWTConfig{})
	}

	b := bus.New(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(cancel)

	ts := &testServer{engine: newFakeEngine(), bus: b, history: &fakeHistory{}}
	server := NewServer(Deps{
		Engine:  ts.engine,
		Bus:     b,
		History: ts.history,
		Auth:    authService,
	}, &cfg, &logger)

	ts.Server = httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (int, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()

	hash, err := auth.HashPassword("operator-pass")
	require.NoError(t, err)
	return auth.NewService(hash, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, nil)

	status, body := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body)
}

func TestPresenceEndpoints(t *testing.T) {
	ts := startTestServer(t, nil)

	status, body := ts.do(t, http.MethodGet, "/api/users", "", "")
	require.Equal(t, http.StatusOK, status)
	var users []UserResponse
	require.NoError(t, json.Unmarshal([]byte(body), &users))
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Name)
	require.Nil(t, users[0].Battle)
	require.NotNil(t, users[1].Battle)
	require.Equal(t, 7, *users[1].Battle)
	require.Equal(t, "J", users[1].Flags)

	status, _ = ts.do(t, http.MethodGet, "/api/users/carol", "", "")
	require.Equal(t, http.StatusNotFound, status)

	status, body = ts.do(t, http.MethodGet, "/api/battles/7", "", "")
	require.Equal(t, http.StatusOK, status)
	var battle BattleResponse
	require.NoError(t, json.Unmarshal([]byte(body), &battle))
	require.Equal(t, "Open game", battle.Title)
	require.True(t, battle.Passworded)
	require.Equal(t, 1, battle.Members)

	status, body = ts.do(t, http.MethodGet, "/api/battles/7/members", "", "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `["bob"]`, body)

	status, _ = ts.do(t, http.MethodGet, "/api/battles/8", "", "")
	require.Equal(t, http.StatusNotFound, status)
	status, _ = ts.do(t, http.MethodGet, "/api/battles/x", "", "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestConnectUsesConfiguredServer(t *testing.T) {
	ts := startTestServer(t, nil)

	status, body := ts.do(t, http.MethodPost, "/api/connect", "", "")
	require.Equal(t, http.StatusAccepted, status)
	require.Contains(t, body, `"phase":"connecting"`)
	require.Equal(t, []string{"lobby.springrts.com"}, ts.engine.connected)

	status, body = ts.do(t, http.MethodPost, "/api/connect", "", `{"host":"other"}`)
	require.Equal(t, http.StatusConflict, status)
	require.Contains(t, body, "already_connected")

	status, body = ts.do(t, http.MethodPost, "/api/disconnect", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"phase":"disconnected"`)
}

func TestSubmitCommandStatusCodes(t *testing.T) {
	ts := startTestServer(t, nil)

	status, _ := ts.do(t, http.MethodPost, "/api/commands", "", `{"kind":"say","channel":"main","text":"hello"}`)
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, []core.Command{core.Say("main", "hello")}, ts.engine.commands())

	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "unknown kind", body: `{"kind":"dance"}`, status: http.StatusBadRequest, code: core.ErrCodeBadRequest},
		{name: "missing battle id", body: `{"kind":"join_battle"}`, status: http.StatusBadRequest, code: core.ErrCodeBadRequest},
		{name: "empty text", body: `{"kind":"say","channel":"main"}`, status: http.StatusBadRequest, code: core.ErrCodeBadRequest},
		{name: "password", body: `{"kind":"join_battle","battle_id":7}`, err: core.PasswordRequired(7), status: http.StatusConflict, code: core.ErrCodePasswordRequired},
		{name: "unknown battle", body: `{"kind":"join_battle","battle_id":9}`, err: core.UnknownBattle(9), status: http.StatusNotFound, code: core.ErrCodeUnknownBattle},
		{name: "offline", body: `{"kind":"ping"}`, err: core.NotConnected(), status: http.StatusConflict, code: core.ErrCodeNotConnected},
		{name: "rate", body: `{"kind":"ping"}`, err: core.RateLimited(), status: http.StatusTooManyRequests, code: core.ErrCodeRateLimited},
		{name: "queue", body: `{"kind":"ping"}`, err: core.QueueFull(), status: http.StatusServiceUnavailable, code: core.ErrCodeQueueFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.engine.mu.Lock()
			ts.engine.submitErr = tt.err
			ts.engine.mu.Unlock()

			status, body := ts.do(t, http.MethodPost, "/api/commands", "", tt.body)
			require.Equal(t, tt.status, status)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &resp))
			require.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestJoinUserBattle(t *testing.T) {
	ts := startTestServer(t, nil)

	status, _ := ts.do(t, http.MethodPost, "/api/users/bob/join", "", `{"password":"secret"}`)
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, []core.Command{core.JoinBattle(7, "secret")}, ts.engine.commands())

	status, _ = ts.do(t, http.MethodPost, "/api/users/nobody/join", "", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestHistoryEndpoints(t *testing.T) {
	ts := startTestServer(t, nil)

	status, body := ts.do(t, http.MethodGet, "/api/history?limit=10&channel=main&before=5", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"body":"hi"`)
	require.Equal(t, 10, ts.history.filter.Limit)
	require.Equal(t, "main", ts.history.filter.Channel)
	require.NotNil(t, ts.history.filter.BeforeID)
	require.Equal(t, int64(5), *ts.history.filter.BeforeID)

	status, _ = ts.do(t, http.MethodGet, "/api/history?limit=-1", "", "")
	require.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodGet, "/api/history/sessions", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"username":"alice"`)
}

func TestTokenAndScopes(t *testing.T) {
	authService := newAuthService(t)
	ts := startTestServer(t, authService)

	status, _ := ts.do(t, http.MethodGet, "/api/session", "", "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodPost, "/auth/token", "", `{"operator":"ops","password":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.do(t, http.MethodPost, "/auth/token", "", `{"operator":"ops","password":"operator-pass"}`)
	require.Equal(t, http.StatusOK, status)
	var tok AuthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &tok))
	require.NotEmpty(t, tok.Token)

	status, _ = ts.do(t, http.MethodGet, "/api/session", tok.Token, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/api/commands", tok.Token, `{"kind":"ping"}`)
	require.Equal(t, http.StatusAccepted, status)

	readOnly, err := auth.GenerateToken(&auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}, "viewer", auth.ScopeRead)
	require.NoError(t, err)

	status, _ = ts.do(t, http.MethodGet, "/api/users", readOnly, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/api/commands", readOnly, `{"kind":"ping"}`)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodGet, "/api/users", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAPIRateLimit(t *testing.T) {
	ts := startTestServer(t, nil, func(cfg *config.Config) { cfg.APIRateLimit = 2 })

	for range 2 {
		status, _ := ts.do(t, http.MethodGet, "/health", "", "")
		require.Equal(t, http.StatusOK, status)
	}
	status, body := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Contains(t, body, "rate_limited")
}

func TestRateLimiterWindowResets(t *testing.T) {
	now := time.Unix(1000, 0)
	r := newRateLimiter(1)
	r.now = func() time.Time { return now }

	require.True(t, r.allow("a"))
	require.False(t, r.allow("a"))
	require.True(t, r.allow("b"))

	now = now.Add(time.Minute)
	require.True(t, r.allow("a"))
}
