package core

import (
	"fmt"
	"strings"
)

// CommandKind describes what the user wants to do.
type CommandKind int

const (
	// CommandJoinChannel joins a chat channel, optionally with a key.
	CommandJoinChannel CommandKind = iota
	// CommandLeaveChannel leaves a chat channel.
	CommandLeaveChannel
	// CommandSay sends a chat line to a channel.
	CommandSay
	// CommandJoinBattle joins a battle, with a password when it is passworded.
	CommandJoinBattle
	// CommandLeaveBattle leaves the current battle.
	CommandLeaveBattle
	// CommandOpenPrivateChat sends a private line to a user.
	CommandOpenPrivateChat
	// CommandSetAway toggles our away flag.
	CommandSetAway
	// CommandPing asks the server for a PONG.
	CommandPing
)

var commandKindNames = map[CommandKind]string{
	CommandJoinChannel:     "join_channel",
	CommandLeaveChannel:    "leave_channel",
	CommandSay:             "say",
	CommandJoinBattle:      "join_battle",
	CommandLeaveBattle:     "leave_battle",
	CommandOpenPrivateChat: "open_private_chat",
	CommandSetAway:         "set_away",
	CommandPing:            "ping",
}

func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(k))
}

// ParseCommandKind maps a name produced by String back to its kind.
func ParseCommandKind(name string) (CommandKind, bool) {
	for k, n := range commandKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Command is an outbound user action. Only the fields relevant to Kind are used.
type Command struct {
	Kind     CommandKind
	Channel  string
	Key      string
	Text     string
	BattleID BattleID
	Password string
	User     string
	Away     bool
}

// JoinChannel builds a channel join.
func JoinChannel(channel, key string) Command {
	return Command{Kind: CommandJoinChannel, Channel: channel, Key: key}
}

// LeaveChannel builds a channel leave.
func LeaveChannel(channel string) Command {
	return Command{Kind: CommandLeaveChannel, Channel: channel}
}

// Say builds a channel chat line.
func Say(channel, text string) Command {
	return Command{Kind: CommandSay, Channel: channel, Text: text}
}

// JoinBattle builds a battle join; password may be empty.
func JoinBattle(id BattleID, password string) Command {
	return Command{Kind: CommandJoinBattle, BattleID: id, Password: password}
}

// LeaveBattle builds a battle leave.
func LeaveBattle() Command {
	return Command{Kind: CommandLeaveBattle}
}

// OpenPrivateChat builds a private chat line.
func OpenPrivateChat(user, text string) Command {
	return Command{Kind: CommandOpenPrivateChat, User: user, Text: text}
}

// SetAway builds an away toggle.
func SetAway(away bool) Command {
	return Command{Kind: CommandSetAway, Away: away}
}

// Ping builds a keepalive ping.
func Ping() Command {
	return Command{Kind: CommandPing}
}

// Validate checks the fields that do not depend on server state.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandJoinChannel:
		if err := word("channel", c.Channel); err != nil {
			return err
		}
		if c.Key != "" {
			return optionalWord("key", c.Key)
		}
	case CommandLeaveChannel:
		return word("channel", c.Channel)
	case CommandSay:
		if err := word("channel", c.Channel); err != nil {
			return err
		}
		if strings.TrimSpace(c.Text) == "" {
			return BadRequest("text is required")
		}
		return singleLine("text", c.Text)
	case CommandJoinBattle:
		if c.BattleID < 0 {
			return BadRequest("battle id must not be negative")
		}
		return optionalWord("password", c.Password)
	case CommandOpenPrivateChat:
		if c.User == "" {
			return BadRequest("user name is required")
		}
		if err := word("user", c.User); err != nil {
			return err
		}
		return singleLine("text", c.Text)
	case CommandLeaveBattle, CommandSetAway, CommandPing:
	default:
		return BadRequest("unknown command kind %d", int(c.Kind))
	}
	return nil
}

func word(field, v string) error {
	if v == "" {
		return BadRequest("%s is required", field)
	}
	return optionalWord(field, v)
}

func optionalWord(field, v string) error {
	if strings.ContainsAny(v, " \t\r\n") {
		return BadRequest("%s must not contain whitespace", field)
	}
	return nil
}

func singleLine(field, v string) error {
	if strings.ContainsAny(v, "\r\n") {
		return BadRequest("%s must be a single line", field)
	}
	return nil
}
