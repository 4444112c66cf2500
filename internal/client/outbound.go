package client

import (
	"fmt"
	"strconv"

	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/proto"
)

// sendCommand serialises an admitted command on the network goroutine, where
// the own status needed by MYSTATUS is known.
func (s *loop) sendCommand(cmd core.Command) error {
	own := s.client.Session().Status
	msg, err := EncodeCommand(cmd, own)
	if err != nil {
		s.log.Warn().Err(err).Stringer("command", cmd.Kind).Msg("dropping command")
		return nil
	}
	s.log.Debug().Stringer("command", cmd.Kind).Str("cmd", msg.Command).Msg("send")
	return s.send(msg)
}

// EncodeCommand maps a user command to its wire message. own is the current
// status of the logged in user; SetAway toggles its away bit.
func EncodeCommand(cmd core.Command, own core.Status) (proto.Message, error) {
	if err := cmd.Validate(); err != nil {
		return proto.Message{}, err
	}

	switch cmd.Kind {
	case core.CommandJoinChannel:
		if cmd.Key != "" {
			return proto.New(proto.CmdJoin, cmd.Channel, cmd.Key), nil
		}
		return proto.New(proto.CmdJoin, cmd.Channel), nil
	case core.CommandLeaveChannel:
		return proto.New(proto.CmdLeave, cmd.Channel), nil
	case core.CommandSay:
		return proto.New(proto.CmdSay, cmd.Channel, cmd.Text), nil
	case core.CommandJoinBattle:
		if cmd.Password != "" {
			return proto.New(proto.CmdJoinBattle, cmd.BattleID.String(), cmd.Password), nil
		}
		return proto.New(proto.CmdJoinBattle, cmd.BattleID.String()), nil
	case core.CommandLeaveBattle:
		return proto.New(proto.CmdLeaveBattle), nil
	case core.CommandOpenPrivateChat:
		return proto.New(proto.CmdSayPrivate, cmd.User, cmd.Text), nil
	case core.CommandSetAway:
		return proto.New(proto.CmdMyStatus, own.WithAway(cmd.Away).String()), nil
	case core.CommandPing:
		return proto.New(proto.CmdPing), nil
	}
	return proto.Message{}, core.BadRequest("unknown command kind %d", int(cmd.Kind))
}

// DecodeCommand is the inverse of EncodeCommand.
func DecodeCommand(msg proto.Message) (core.Command, error) {
	switch msg.Command {
	case proto.CmdJoin:
		return core.JoinChannel(msg.Arg(0), msg.Arg(1)), nil
	case proto.CmdLeave:
		return core.LeaveChannel(msg.Arg(0)), nil
	case proto.CmdSay:
		return core.Say(msg.Arg(0), msg.Arg(1)), nil
	case proto.CmdJoinBattle:
		id, err := core.ParseBattleID(msg.Arg(0))
		if err != nil {
			return core.Command{}, err
		}
		return core.JoinBattle(id, msg.Arg(1)), nil
	case proto.CmdLeaveBattle:
		return core.LeaveBattle(), nil
	case proto.CmdSayPrivate:
		return core.OpenPrivateChat(msg.Arg(0), msg.Arg(1)), nil
	case proto.CmdMyStatus:
		n, err := strconv.ParseUint(msg.Arg(0), 10, 8)
		if err != nil {
			return core.Command{}, fmt.Errorf("status %q: %w", msg.Arg(0), proto.ErrMalformed)
		}
		return core.SetAway(core.Status(n).Away()), nil
	case proto.CmdPing:
		return core.Ping(), nil
	}
	return core.Command{}, fmt.Errorf("%s is not a user command: %w", msg.Command, proto.ErrMalformed)
}
