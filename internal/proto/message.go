package proto

// Command keywords of the lobby protocol (TASServer dialect).
const (
	// Handshake.
	CmdGreeting     = "TASServer"
	CmdLogin        = "LOGIN"
	CmdAccepted     = "ACCEPTED"
	CmdDenied       = "DENIED"
	CmdLoginInfoEnd = "LOGININFOEND"
	CmdAgreement    = "AGREEMENT"
	CmdAgreementEnd = "AGREEMENTEND"
	CmdMOTD         = "MOTD"
	CmdExit         = "EXIT"

	// Keepalive.
	CmdPing = "PING"
	CmdPong = "PONG"

	// Presence.
	CmdAddUser      = "ADDUSER"
	CmdRemoveUser   = "REMOVEUSER"
	CmdClientStatus = "CLIENTSTATUS"
	CmdMyStatus     = "MYSTATUS"

	// Server notices.
	CmdServerMsg    = "SERVERMSG"
	CmdServerMsgBox = "SERVERMSGBOX"
	CmdRing         = "RING"

	// Chat.
	CmdJoin          = "JOIN"
	CmdJoinFailed    = "JOINFAILED"
	CmdJoined        = "JOINED"
	CmdLeave         = "LEAVE"
	CmdLeft          = "LEFT"
	CmdSay           = "SAY"
	CmdSayEx         = "SAYEX"
	CmdSaid          = "SAID"
	CmdSaidEx        = "SAIDEX"
	CmdSayPrivate    = "SAYPRIVATE"
	CmdSaidPrivate   = "SAIDPRIVATE"
	CmdSayPrivateEx  = "SAYPRIVATEEX"
	CmdSaidPrivateEx = "SAIDPRIVATEEX"
	CmdChannelTopic  = "CHANNELTOPIC"
	CmdRegDenied     = "REGISTRATIONDENIED"

	// Battles.
	CmdBattleOpened     = "BATTLEOPENED"
	CmdBattleClosed     = "BATTLECLOSED"
	CmdJoinedBattle     = "JOINEDBATTLE"
	CmdLeftBattle       = "LEFTBATTLE"
	CmdUpdateBattleInfo = "UPDATEBATTLEINFO"
	CmdJoinBattle       = "JOINBATTLE"
	CmdJoinBattleFailed = "JOINBATTLEFAILED"
	CmdLeaveBattle      = "LEAVEBATTLE"
)

// Message is one decoded protocol line: a command keyword and its arguments.
type Message struct {
	Command string
	Args    []string
}

// New builds a message from a keyword and arguments.
func New(command string, args ...string) Message {
	return Message{Command: command, Args: args}
}

// Arg returns the i-th argument or "" when absent.
func (m Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// Layout describes how a line is tokenised after its keyword.
// Fixed leading tokens are separated by single spaces; with Rest set the
// remainder of the line is kept verbatim as one final argument.
type Layout struct {
	Fixed int
	Rest  bool
}

var layouts = map[string]Layout{
	CmdServerMsg:        {Fixed: 0, Rest: true},
	CmdServerMsgBox:     {Fixed: 0, Rest: true},
	CmdMOTD:             {Fixed: 0, Rest: true},
	CmdDenied:           {Fixed: 0, Rest: true},
	CmdAgreement:        {Fixed: 0, Rest: true},
	CmdJoinBattleFailed: {Fixed: 0, Rest: true},
	CmdRegDenied:        {Fixed: 0, Rest: true},
	CmdExit:             {Fixed: 0, Rest: true},
	CmdSaidPrivate:      {Fixed: 1, Rest: true},
	CmdSayPrivate:       {Fixed: 1, Rest: true},
	CmdSaidPrivateEx:    {Fixed: 1, Rest: true},
	CmdSayPrivateEx:     {Fixed: 1, Rest: true},
	CmdSay:              {Fixed: 1, Rest: true},
	CmdSayEx:            {Fixed: 1, Rest: true},
	CmdJoinFailed:       {Fixed: 1, Rest: true},
	CmdSaid:             {Fixed: 2, Rest: true},
	CmdSaidEx:           {Fixed: 2, Rest: true},
	CmdLeft:             {Fixed: 2, Rest: true},
	CmdChannelTopic:     {Fixed: 2, Rest: true},
	CmdAddUser:          {Fixed: 3, Rest: true},
	CmdUpdateBattleInfo: {Fixed: 4, Rest: true},
	CmdLogin:            {Fixed: 4, Rest: true},
	CmdBattleOpened:     {Fixed: 10, Rest: true},
}

// LayoutOf returns the layout for a keyword. Keywords without one split on every space.
func LayoutOf(command string) (Layout, bool) {
	l, ok := layouts[command]
	return l, ok
}
