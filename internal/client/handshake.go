package client

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/proto"
)

const agreementReason = "server requires accepting its terms of service"

// handle routes one decoded line according to the session phase.
func (s *loop) handle(msg proto.Message) error {
	switch s.phase {
	case core.PhaseConnecting:
		return s.greet(msg)
	case core.PhaseAuthenticating:
		return s.authenticate(msg)
	case core.PhaseConnected:
		s.dispatch(msg, false)
	}
	return nil
}

func (s *loop) setPhase(p core.Phase) {
	s.phase = p
	s.client.updateSession(func(sess *core.Session) { sess.Phase = p })
}

// greet expects the server greeting as the very first line and answers it
// with LOGIN. Anything else ends the session.
func (s *loop) greet(msg proto.Message) error {
	if msg.Command != proto.CmdGreeting {
		return &core.TransportError{
			Op:  "handshake",
			Err: fmt.Errorf("%w: %s", core.ErrUnexpectedFirst, msg.Command),
		}
	}

	c := s.client
	c.updateSession(func(sess *core.Session) {
		sess.ServerVersion = msg.Arg(0)
		sess.EngineVersion = msg.Arg(1)
	})
	s.log.Info().
		Str("server_version", msg.Arg(0)).
		Str("engine_version", msg.Arg(1)).
		Msg("greeting received, logging in")

	s.setPhase(core.PhaseAuthenticating)
	return s.send(loginMessage(c.opts))
}

func loginMessage(opts Options) proto.Message {
	client := strings.Join([]string{opts.LobbyName, "0", opts.CompatFlags}, "\t")
	return proto.New(proto.CmdLogin,
		opts.Username,
		auth.EncodePassword(opts.Password),
		"0",
		"*",
		client,
	)
}

// authenticate handles lines between LOGIN and LOGININFOEND. The initial
// enumeration fills the presence store without emitting per-user events;
// consumers get the whole list with the LoginResult.
func (s *loop) authenticate(msg proto.Message) error {
	c := s.client

	switch msg.Command {
	case proto.CmdAccepted:
		s.username = msg.Arg(0)
		if s.username == "" {
			s.username = c.opts.Username
		}
		c.updateSession(func(sess *core.Session) { sess.Username = s.username })
		s.log.Info().Str("user", s.username).Msg("login accepted")

	case proto.CmdDenied:
		return s.deny(msg.Arg(0))

	case proto.CmdAgreement:
		s.agreement = append(s.agreement, msg.Arg(0))

	case proto.CmdAgreementEnd:
		s.publish(core.Event{Kind: core.EventServerMsg, Text: strings.Join(s.agreement, "\n")})
		s.agreement = nil
		return s.deny(agreementReason)

	case proto.CmdLoginInfoEnd:
		if s.username == "" {
			s.username = c.opts.Username
			c.updateSession(func(sess *core.Session) { sess.Username = s.username })
		}
		s.setPhase(core.PhaseConnected)

		users := c.presence.ListUsers()
		s.log.Info().
			Int("users", len(users)).
			Int("battles", len(c.presence.ListBattles())).
			Msg("login complete")
		s.publish(core.Event{
			Kind:    core.EventLoginResult,
			Success: true,
			Info:    s.username,
			Users:   users,
		})

		for _, ch := range c.opts.AutoJoinChannels {
			if err := s.send(proto.New(proto.CmdJoin, ch)); err != nil {
				return err
			}
		}

	default:
		s.dispatch(msg, true)
	}
	return nil
}

func (s *loop) deny(reason string) error {
	if reason == "" {
		reason = "login denied"
	}
	err := &core.AuthError{Reason: reason}
	s.publish(core.Event{
		Kind:    core.EventLoginResult,
		Success: false,
		Info:    reason,
		Err:     err,
	})
	return err
}

// keepalive runs on every ticker tick. While connected it force-disconnects
// a stalled connection and otherwise pings at PingInterval.
func (s *loop) keepalive() error {
	if s.phase != core.PhaseConnected {
		return nil
	}

	c := s.client
	now := c.clock.Now()
	if idle := now.Sub(s.lastRecv); idle >= c.opts.IdleTimeout {
		return &core.TransportError{
			Op:  "keepalive",
			Err: fmt.Errorf("%w: nothing received for %s", core.ErrStalled, idle),
		}
	}

	if now.Sub(s.lastPing) < c.opts.PingInterval {
		return nil
	}
	s.lastPing = now
	c.updateSession(func(sess *core.Session) { sess.LastPing = now })
	return s.send(proto.New(proto.CmdPing))
}
