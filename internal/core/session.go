package core

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Phase is the connection lifecycle state of a session.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseAuthenticating
	PhaseConnected
	PhaseDisconnecting
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Session is a read-only snapshot of the connection state.
type Session struct {
	ID            string
	Phase         Phase
	Host          string
	Port          int
	Username      string
	ServerVersion string
	EngineVersion string
	Status        Status
	LastActivity  time.Time
	LastPing      time.Time
	LastPong      time.Time
	StartedAt     time.Time
}

// Away reports our own away flag.
func (s Session) Away() bool {
	return s.Status.Away()
}

// Addr renders host:port.
func (s Session) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
