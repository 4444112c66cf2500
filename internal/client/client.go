// Package client implements the lobby session: connection lifecycle, login
// handshake, presence tracking from server lines, keepalive and the outbound
// command queue.
//
// One network goroutine per session owns the transport, the decoder and all
// mutation of the session and presence state. Consumers read snapshots and
// receive events through the bus; they never touch that state directly.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/bus"
	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/transport"
	"github.com/vovakirdan/lobbyclient/internal/utils"
)

// Options configures a Client.
type Options struct {
	Username    string
	Password    string
	LobbyName   string
	CompatFlags string

	KeepaliveInterval time.Duration
	PingInterval      time.Duration
	IdleTimeout       time.Duration

	QueueSize         int
	CommandsPerMinute int
	SendRate          int
	MaxLineLength     int

	AutoJoinChannels []string

	Clock clock.Clock
}

// DefaultOptions returns the timings used by the desktop client.
func DefaultOptions() Options {
	return Options{
		LobbyName:         "lobbyclient",
		CompatFlags:       "sp u",
		KeepaliveInterval: 10 * time.Second,
		PingInterval:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
		QueueSize:         64,
		CommandsPerMinute: 120,
		SendRate:          5,
	}
}

// Client is a lobby protocol session engine.
type Client struct {
	opts     Options
	dialer   transport.Dialer
	bus      *bus.Bus
	presence *core.Presence
	clock    clock.Clock
	admit    *rateLimiter
	log      *zerolog.Logger

	mu       sync.Mutex
	session  core.Session
	conn     transport.Conn
	commands chan core.Command
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool
}

// New creates a disconnected client publishing to b.
func New(opts Options, dialer transport.Dialer, b *bus.Bus, logger *zerolog.Logger) *Client {
	defaults := DefaultOptions()
	if opts.LobbyName == "" {
		opts.LobbyName = defaults.LobbyName
	}
	if opts.CompatFlags == "" {
		opts.CompatFlags = defaults.CompatFlags
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = defaults.KeepaliveInterval
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaults.PingInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Client{
		opts:     opts,
		dialer:   dialer,
		bus:      b,
		presence: core.NewPresence(),
		clock:    opts.Clock,
		admit:    newRateLimiter(opts.CommandsPerMinute, opts.Clock),
		log:      logger,
		session:  core.Session{Phase: core.PhaseDisconnected},
	}
}

// Presence exposes the read side of the presence store.
func (c *Client) Presence() *core.Presence {
	return c.presence
}

// Session returns a snapshot of the session state.
func (c *Client) Session() core.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// GetUser returns a copy of a known user, or an error wrapping core.ErrNotFound.
func (c *Client) GetUser(name string) (core.User, error) {
	return c.presence.GetUser(name)
}

// ListUsers returns known users in the order the server announced them.
func (c *Client) ListUsers() []core.User {
	return c.presence.ListUsers()
}

// Connect starts a session against host:port. It returns once the network
// goroutine is started; the outcome arrives as Connected/LoginResult events.
func (c *Client) Connect(host string, port int) error {
	if host == "" || port <= 0 {
		return core.BadRequest("host and port are required")
	}
	if c.opts.Username == "" || strings.ContainsAny(c.opts.Username, " \t\r\n") {
		return core.BadRequest("username must be a non-empty word")
	}

	c.mu.Lock()
	if c.session.Phase != core.PhaseDisconnected {
		phase := c.session.Phase
		c.mu.Unlock()
		return fmt.Errorf("connect while %s: %w", phase, core.ErrAlreadyConnected)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := c.clock.Now()
	c.session = core.Session{
		ID:           utils.NewID(),
		Phase:        core.PhaseConnecting,
		Host:         host,
		Port:         port,
		StartedAt:    now,
		LastActivity: now,
	}
	c.commands = make(chan core.Command, c.opts.QueueSize)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.stopping = false

	s := &loop{
		client:   c,
		id:       c.session.ID,
		host:     host,
		port:     port,
		commands: c.commands,
		done:     c.done,
	}
	c.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Disconnect closes the transport and waits for the network goroutine to
// finish its teardown, or for ctx to end. The read failure caused by the
// close is treated as a normal teardown. Disconnect is safe to call from any
// goroutine and is a no-op when already disconnected.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Phase == core.PhaseDisconnected || c.done == nil {
		c.mu.Unlock()
		return nil
	}
	c.stopping = true
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the current session's network goroutine has exited.
func (c *Client) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates a command and queues it for transmission. Validation
// failures are returned synchronously as *core.CommandError and nothing is
// sent. Admitted commands are written in submission order.
func (c *Client) Submit(cmd core.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	phase := c.session.Phase
	queue := c.commands
	c.mu.Unlock()

	if phase != core.PhaseConnected || queue == nil {
		return core.NotConnected()
	}

	if cmd.Kind == core.CommandJoinBattle {
		b, err := c.presence.GetBattle(cmd.BattleID)
		if err != nil {
			return core.UnknownBattle(cmd.BattleID)
		}
		if b.Passworded && cmd.Password == "" {
			return core.PasswordRequired(b.ID)
		}
	}

	if !c.admit.allow() {
		return core.RateLimited()
	}

	select {
	case queue <- cmd:
		return nil
	default:
		return core.QueueFull()
	}
}

// JoinUserBattle joins the battle the named user is currently in.
func (c *Client) JoinUserBattle(name, password string) error {
	u, err := c.presence.GetUser(name)
	if err != nil {
		return err
	}
	if !u.InBattle() {
		return core.BadRequest("user %s is not in a battle", name)
	}
	return c.Submit(core.JoinBattle(u.JoinedBattle, password))
}

func (c *Client) publish(ev core.Event) {
	if ev.At.IsZero() {
		ev.At = c.clock.Now()
	}
	c.bus.Publish(ev)
}

func (c *Client) updateSession(fn func(s *core.Session)) {
	c.mu.Lock()
	fn(&c.session)
	c.mu.Unlock()
}

func (c *Client) stopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}
