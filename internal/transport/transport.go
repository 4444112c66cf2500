// Package transport connects the lobby client to a server. The client owns
// framing; a transport only moves bytes.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Conn is a connected byte stream. Read yields chunks until the stream ends
// or fails; Close may be called from any goroutine and unblocks Read.
type Conn interface {
	Read(p []byte) (int, error)
	Send(p []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Conn, error)
}

// Kinds accepted by New.
const (
	KindTCP       = "tcp"
	KindWebSocket = "ws"
)

// New returns a dialer for the named transport kind.
func New(kind string, dialTimeout time.Duration, wsPath string) (Dialer, error) {
	switch kind {
	case "", KindTCP:
		return &TCPDialer{Timeout: dialTimeout}, nil
	case KindWebSocket, "websocket":
		return &WSDialer{Timeout: dialTimeout, Path: wsPath}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// TCPDialer dials plain TCP, the native lobby transport.
type TCPDialer struct {
	Timeout time.Duration
}

func (d *TCPDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	c, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// WSDialer tunnels the line protocol through text websocket messages.
type WSDialer struct {
	Timeout time.Duration
	Path    string
}

func (d *WSDialer) Dial(ctx context.Context, host string, port int) (Conn, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   d.Path,
	}

	dialCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	// The stream context must outlive the dial; Close cancels it.
	streamCtx, cancel := context.WithCancel(context.Background())
	nc := websocket.NetConn(streamCtx, ws, websocket.MessageText)
	return &netConn{Conn: nc, onClose: cancel}, nil
}

// NewConn adapts a net.Conn.
func NewConn(c net.Conn) Conn {
	return &netConn{Conn: c}
}

type netConn struct {
	net.Conn
	closeOnce sync.Once
	closeErr  error
	onClose   func()
}

func (c *netConn) Send(p []byte) error {
	for len(p) > 0 {
		n, err := c.Conn.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (c *netConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
	return c.closeErr
}
