package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/proto"
)

// handlerFunc applies one inbound line. While quiet is set (the login
// enumeration) presence changes are applied without per-item events.
type handlerFunc func(s *loop, msg proto.Message, quiet bool) error

var handlers = map[string]handlerFunc{
	proto.CmdAddUser:          (*loop).onAddUser,
	proto.CmdRemoveUser:       (*loop).onRemoveUser,
	proto.CmdClientStatus:     (*loop).onClientStatus,
	proto.CmdBattleOpened:     (*loop).onBattleOpened,
	proto.CmdBattleClosed:     (*loop).onBattleClosed,
	proto.CmdJoinedBattle:     (*loop).onJoinedBattle,
	proto.CmdLeftBattle:       (*loop).onLeftBattle,
	proto.CmdUpdateBattleInfo: (*loop).onUpdateBattleInfo,
	proto.CmdJoinBattle:       (*loop).onJoinBattle,
	proto.CmdJoinBattleFailed: (*loop).onJoinBattleFailed,
	proto.CmdServerMsg:        (*loop).onServerMsg,
	proto.CmdServerMsgBox:     (*loop).onServerMsg,
	proto.CmdMOTD:             (*loop).onServerMsg,
	proto.CmdSaid:             (*loop).onSaid,
	proto.CmdSaidEx:           (*loop).onSaid,
	proto.CmdSaidPrivate:      (*loop).onSaidPrivate,
	proto.CmdSaidPrivateEx:    (*loop).onSaidPrivate,
	proto.CmdJoin:             (*loop).onJoin,
	proto.CmdJoinFailed:       (*loop).onJoinFailed,
	proto.CmdRing:             (*loop).onRing,
	proto.CmdPong:             (*loop).onPong,
}

func (s *loop) dispatch(msg proto.Message, quiet bool) {
	h, ok := handlers[msg.Command]
	if !ok {
		s.log.Debug().Str("cmd", msg.Command).Msg("ignoring unhandled command")
		return
	}

	err := h(s, msg, quiet)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotFound):
		// The server referenced something we never saw; skip the line.
		s.log.Debug().Err(err).Str("cmd", msg.Command).Msg("unknown reference")
	default:
		s.protocolError(&proto.ProtocolError{Line: render(msg), Reason: err.Error(), Err: err})
	}
}

// emitState publishes a presence change unless the login enumeration is
// still in progress.
func (s *loop) emitState(quiet bool, ev core.Event) {
	if quiet {
		return
	}
	s.publish(ev)
}

func (s *loop) onAddUser(msg proto.Message, quiet bool) error {
	if err := need(msg, 2); err != nil {
		return err
	}
	u := core.NewUser(msg.Arg(0), msg.Arg(1))
	if cpu := msg.Arg(2); cpu != "" {
		n, err := strconv.Atoi(cpu)
		if err != nil {
			return fmt.Errorf("cpu %q: %w", cpu, proto.ErrMalformed)
		}
		u.CPU = n
	}
	if rest := msg.Arg(3); rest != "" {
		u.AccountID, _, _ = strings.Cut(rest, " ")
	}

	kind := core.EventUserChanged
	if s.client.presence.AddUser(u) {
		kind = core.EventUserJoined
	}
	if stored, err := s.client.presence.GetUser(u.Name); err == nil {
		u = stored
	}
	s.emitState(quiet, core.Event{Kind: kind, User: u})
	return nil
}

func (s *loop) onRemoveUser(msg proto.Message, quiet bool) error {
	if err := need(msg, 1); err != nil {
		return err
	}
	u, err := s.client.presence.RemoveUser(msg.Arg(0))
	if err != nil {
		return err
	}
	s.emitState(quiet, core.Event{Kind: core.EventUserLeft, User: u})
	return nil
}

func (s *loop) onClientStatus(msg proto.Message, quiet bool) error {
	if err := need(msg, 2); err != nil {
		return err
	}
	st, err := core.ParseStatus(msg.Arg(1))
	if err != nil {
		return err
	}
	u, err := s.client.presence.SetStatus(msg.Arg(0), st)
	if err != nil {
		return err
	}
	if u.Name == s.username {
		s.client.updateSession(func(sess *core.Session) { sess.Status = st })
	}
	s.emitState(quiet, core.Event{Kind: core.EventUserChanged, User: u})
	return nil
}

func (s *loop) onBattleOpened(msg proto.Message, quiet bool) error {
	if err := need(msg, 10); err != nil {
		return err
	}
	b, err := parseBattle(msg)
	if err != nil {
		return err
	}

	b, founder := s.client.presence.AddBattle(b)
	s.emitState(quiet, core.Event{Kind: core.EventBattleOpened, Battle: b})
	if founder != nil {
		s.emitState(quiet, core.Event{Kind: core.EventUserChanged, User: *founder})
	}
	return nil
}

// parseBattle reads BATTLEOPENED:
//
//	id type natType founder ip port maxPlayers passworded rank mapHash {engine}\t{version}\t{map}\t{title}\t{game}
//
// Older servers omit the engine sentences.
func parseBattle(msg proto.Message) (core.Battle, error) {
	id, err := core.ParseBattleID(msg.Arg(0))
	if err != nil {
		return core.Battle{}, err
	}
	ints, err := atois(msg, 1, 2, 5, 6, 8)
	if err != nil {
		return core.Battle{}, err
	}

	b := core.Battle{
		ID:         id,
		Type:       core.BattleType(ints[0]),
		NatType:    ints[1],
		Founder:    msg.Arg(3),
		IP:         msg.Arg(4),
		Port:       ints[2],
		MaxPlayers: ints[3],
		Passworded: msg.Arg(7) == "1",
		Rank:       ints[4],
		MapHash:    msg.Arg(9),
	}

	sentences := proto.SplitSentences(msg.Arg(10))
	switch len(sentences) {
	case 5:
		b.Engine, b.EngineVersion = sentences[0], sentences[1]
		sentences = sentences[2:]
		fallthrough
	case 3:
		b.Map, b.Title, b.Game = sentences[0], sentences[1], sentences[2]
	default:
		return core.Battle{}, fmt.Errorf("battle %d: %d sentences: %w", id, len(sentences), proto.ErrMalformed)
	}
	return b, nil
}

func (s *loop) onBattleClosed(msg proto.Message, quiet bool) error {
	id, err := battleArg(msg, 0)
	if err != nil {
		return err
	}
	b, detached, err := s.client.presence.RemoveBattle(id)
	if err != nil {
		return err
	}
	for _, u := range detached {
		s.emitState(quiet, core.Event{Kind: core.EventUserChanged, User: u})
	}
	s.emitState(quiet, core.Event{Kind: core.EventBattleClosed, Battle: b})
	return nil
}

func (s *loop) onJoinedBattle(msg proto.Message, quiet bool) error {
	id, err := battleArg(msg, 0)
	if err != nil {
		return err
	}
	if err := need(msg, 2); err != nil {
		return err
	}
	u, err := s.client.presence.JoinBattle(id, msg.Arg(1))
	if err != nil {
		return err
	}
	s.emitState(quiet, core.Event{Kind: core.EventUserChanged, User: u})
	return nil
}

func (s *loop) onLeftBattle(msg proto.Message, quiet bool) error {
	id, err := battleArg(msg, 0)
	if err != nil {
		return err
	}
	if err := need(msg, 2); err != nil {
		return err
	}
	u, err := s.client.presence.LeaveBattle(id, msg.Arg(1))
	if err != nil {
		return err
	}
	s.emitState(quiet, core.Event{Kind: core.EventUserChanged, User: u})
	return nil
}

func (s *loop) onUpdateBattleInfo(msg proto.Message, quiet bool) error {
	if err := need(msg, 4); err != nil {
		return err
	}
	id, err := battleArg(msg, 0)
	if err != nil {
		return err
	}
	spectators, err := strconv.Atoi(msg.Arg(1))
	if err != nil {
		return fmt.Errorf("spectators %q: %w", msg.Arg(1), proto.ErrMalformed)
	}
	b, err := s.client.presence.UpdateBattleInfo(id, spectators, msg.Arg(2) == "1", msg.Arg(3), msg.Arg(4))
	if err != nil {
		return err
	}
	s.emitState(quiet, core.Event{Kind: core.EventBattleChanged, Battle: b})
	return nil
}

func (s *loop) onJoinBattle(msg proto.Message, _ bool) error {
	id, err := battleArg(msg, 0)
	if err != nil {
		return err
	}
	b, err := s.client.presence.GetBattle(id)
	if err != nil {
		return err
	}
	s.log.Info().Stringer("battle", id).Str("title", b.Title).Msg("joined battle")
	s.publish(core.Event{Kind: core.EventBattleJoined, Battle: b})
	return nil
}

func (s *loop) onJoinBattleFailed(msg proto.Message, _ bool) error {
	s.publish(core.Event{Kind: core.EventJoinBattleFailed, Info: msg.Arg(0)})
	return nil
}

func (s *loop) onServerMsg(msg proto.Message, _ bool) error {
	s.publish(core.Event{Kind: core.EventServerMsg, Text: msg.Arg(0)})
	return nil
}

func (s *loop) onSaid(msg proto.Message, _ bool) error {
	if err := need(msg, 2); err != nil {
		return err
	}
	s.publish(core.Event{
		Kind:    core.EventSaid,
		Channel: msg.Arg(0),
		From:    msg.Arg(1),
		Text:    msg.Arg(2),
	})
	return nil
}

func (s *loop) onSaidPrivate(msg proto.Message, _ bool) error {
	if err := need(msg, 1); err != nil {
		return err
	}
	s.publish(core.Event{Kind: core.EventSaidPrivate, From: msg.Arg(0), Text: msg.Arg(1)})
	return nil
}

func (s *loop) onJoin(msg proto.Message, _ bool) error {
	if err := need(msg, 1); err != nil {
		return err
	}
	s.publish(core.Event{Kind: core.EventChannelJoined, Channel: msg.Arg(0)})
	return nil
}

func (s *loop) onJoinFailed(msg proto.Message, _ bool) error {
	if err := need(msg, 1); err != nil {
		return err
	}
	s.publish(core.Event{Kind: core.EventJoinChannelFailed, Channel: msg.Arg(0), Info: msg.Arg(1)})
	return nil
}

func (s *loop) onRing(msg proto.Message, _ bool) error {
	if err := need(msg, 1); err != nil {
		return err
	}
	s.publish(core.Event{Kind: core.EventRing, From: msg.Arg(0)})
	return nil
}

func (s *loop) onPong(proto.Message, bool) error {
	now := s.client.clock.Now()
	s.client.updateSession(func(sess *core.Session) { sess.LastPong = now })
	return nil
}

func need(msg proto.Message, n int) error {
	if len(msg.Args) < n {
		return fmt.Errorf("%s needs %d arguments, got %d: %w", msg.Command, n, len(msg.Args), proto.ErrMalformed)
	}
	for i := 0; i < n; i++ {
		if msg.Args[i] == "" {
			return fmt.Errorf("%s argument %d is empty: %w", msg.Command, i, proto.ErrMalformed)
		}
	}
	return nil
}

func battleArg(msg proto.Message, i int) (core.BattleID, error) {
	if err := need(msg, i+1); err != nil {
		return core.NoBattle, err
	}
	return core.ParseBattleID(msg.Arg(i))
}

func atois(msg proto.Message, idx ...int) ([]int, error) {
	out := make([]int, len(idx))
	for n, i := range idx {
		v, err := strconv.Atoi(msg.Arg(i))
		if err != nil {
			return nil, fmt.Errorf("%s argument %d %q: %w", msg.Command, i, msg.Arg(i), proto.ErrMalformed)
		}
		out[n] = v
	}
	return out, nil
}

func render(msg proto.Message) string {
	if len(msg.Args) == 0 {
		return msg.Command
	}
	return msg.Command + " " + strings.Join(msg.Args, " ")
}
