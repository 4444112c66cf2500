package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"

	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/proto"
	"github.com/vovakirdan/lobbyclient/internal/transport"
)

const (
	readBufferSize  = 4096
	outboxSize      = 256
	readResultsSize = 8
)

type readResult struct {
	data []byte
	err  error
}

// loop is the state owned by one session's network goroutine.
type loop struct {
	client   *Client
	id       string
	host     string
	port     int
	commands <-chan core.Command
	done     chan struct{}

	log      zerolog.Logger
	conn     transport.Conn
	dec      *proto.Decoder
	outbox   chan []byte
	writeErr chan error
	writerUp chan struct{}
	stop     chan struct{}

	phase     core.Phase
	lastRecv  time.Time
	lastPing  time.Time
	username  string
	agreement []string
}

func (s *loop) run(ctx context.Context) {
	defer close(s.done)

	c := s.client
	s.phase = core.PhaseConnecting
	s.log = c.log.With().
		Str("session_id", s.id).
		Str("host", s.host).
		Int("port", s.port).
		Logger()

	s.log.Info().Msg("connecting")

	conn, err := c.dialer.Dial(ctx, s.host, s.port)
	if err != nil {
		if c.stopRequested() {
			s.teardown(nil)
			return
		}
		s.log.Warn().Err(err).Msg("dial failed")
		s.teardown(&core.TransportError{Op: "dial", Err: err})
		return
	}

	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		_ = conn.Close()
		s.teardown(nil)
		return
	}
	c.conn = conn
	c.mu.Unlock()

	s.log.Info().Msg("connected, awaiting greeting")
	s.publish(core.Event{
		Kind:      core.EventConnected,
		Connected: true,
		Info:      net.JoinHostPort(s.host, strconv.Itoa(s.port)),
	})

	s.conn = conn
	s.dec = proto.NewDecoder(c.opts.MaxLineLength)
	s.outbox = make(chan []byte, outboxSize)
	s.writeErr = make(chan error, 1)
	s.writerUp = make(chan struct{})
	s.stop = make(chan struct{})
	s.lastRecv = c.clock.Now()

	reads := make(chan readResult, readResultsSize)
	go s.readLoop(reads)
	go s.writeLoop(newPacer(c.opts.SendRate))

	ticker := c.clock.Ticker(c.opts.KeepaliveInterval)
	defer ticker.Stop()

	s.teardown(s.serve(ctx, reads, ticker.C))
}

// serve multiplexes inbound chunks, queued commands and keepalive ticks until
// the session ends. It returns the cause of the teardown, nil for a
// user-initiated disconnect.
func (s *loop) serve(ctx context.Context, reads <-chan readResult, ticks <-chan time.Time) error {
	c := s.client
	for {
		select {
		case <-ctx.Done():
			return nil

		case r := <-reads:
			if len(r.data) > 0 {
				if err := s.receive(r.data); err != nil {
					return err
				}
			}
			if r.err != nil {
				if c.stopRequested() {
					return nil
				}
				if errors.Is(r.err, io.EOF) || errors.Is(r.err, net.ErrClosed) {
					return &core.TransportError{Op: "read", Err: errors.New("connection closed by server")}
				}
				return &core.TransportError{Op: "read", Err: r.err}
			}

		case err := <-s.writeErr:
			if c.stopRequested() {
				return nil
			}
			return &core.TransportError{Op: "write", Err: err}

		case cmd := <-s.commands:
			if err := s.sendCommand(cmd); err != nil {
				return err
			}

		case <-ticks:
			if err := s.keepalive(); err != nil {
				return err
			}
		}
	}
}

// receive decodes one chunk and dispatches every complete line in order.
func (s *loop) receive(chunk []byte) error {
	c := s.client
	s.lastRecv = c.clock.Now()
	c.updateSession(func(sess *core.Session) { sess.LastActivity = s.lastRecv })

	s.dec.Feed(chunk)
	for msg, err := range s.dec.Messages() {
		if err != nil {
			s.protocolError(err)
			if s.phase == core.PhaseConnecting {
				// Nothing but the greeting may open a session.
				return &core.TransportError{
					Op:  "handshake",
					Err: fmt.Errorf("%w: %w", core.ErrUnexpectedFirst, err),
				}
			}
			continue
		}
		if s.log.GetLevel() <= zerolog.TraceLevel {
			s.log.Trace().Str("cmd", msg.Command).Strs("args", msg.Args).Msg("recv")
		}
		if err := s.handle(msg); err != nil {
			return err
		}
	}
	return nil
}

// send encodes a message and hands it to the writer goroutine.
func (s *loop) send(msg proto.Message) error {
	data, err := proto.Encode(msg)
	if err != nil {
		s.log.Error().Err(err).Str("cmd", msg.Command).Msg("dropping unencodable message")
		return nil
	}
	select {
	case s.outbox <- data:
		return nil
	case <-s.writerUp:
		return &core.TransportError{Op: "write", Err: errors.New("writer stopped")}
	}
}

func (s *loop) readLoop(out chan<- readResult) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		var r readResult
		if n > 0 {
			r.data = append([]byte(nil), buf[:n]...)
		}
		r.err = err
		if n > 0 || err != nil {
			select {
			case out <- r:
			case <-s.stop:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *loop) writeLoop(pacer ratelimit.Limiter) {
	defer close(s.writerUp)
	for {
		select {
		case <-s.stop:
			return
		case data := <-s.outbox:
			pacer.Take()
			if err := s.conn.Send(data); err != nil {
				s.writeErr <- err
				return
			}
		}
	}
}

func newPacer(perSecond int) ratelimit.Limiter {
	if perSecond <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(perSecond, ratelimit.WithSlack(0))
}

// teardown runs exactly once per session, on the network goroutine.
func (s *loop) teardown(cause error) {
	c := s.client
	c.updateSession(func(sess *core.Session) { sess.Phase = core.PhaseDisconnecting })

	if s.conn != nil {
		_ = s.conn.Close()
		close(s.stop)
		<-s.writerUp
	}

	c.presence.Clear()

	c.mu.Lock()
	ended := c.session
	c.session = core.Session{
		ID:        ended.ID,
		Phase:     core.PhaseDisconnected,
		Host:      ended.Host,
		Port:      ended.Port,
		Username:  ended.Username,
		StartedAt: ended.StartedAt,
	}
	c.conn = nil
	c.commands = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	uptime := c.clock.Since(ended.StartedAt)
	if cause != nil {
		s.log.Warn().Err(cause).Dur("uptime", uptime).Msg("disconnected")
	} else {
		s.log.Info().Dur("uptime", uptime).Msg("disconnected")
	}

	s.publish(core.Event{Kind: core.EventConnected, Connected: false, Err: cause})
}

// publish stamps events with the id of the session that produced them.
func (s *loop) publish(ev core.Event) {
	ev.SessionID = s.id
	s.client.publish(ev)
}

func (s *loop) protocolError(err error) {
	s.log.Warn().Err(err).Msg("dropping line")
	s.publish(core.Event{Kind: core.EventProtocolError, Err: err, Info: err.Error()})
}
