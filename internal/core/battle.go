package core

// BattleType distinguishes normal battles from replays.
type BattleType int

const (
	BattleTypeNormal BattleType = 0
	BattleTypeReplay BattleType = 1
)

// Battle is a hosted multiplayer game as announced by BATTLEOPENED.
// Members counts users whose JoinedBattle points at this battle; the
// names themselves live in the presence store's secondary index.
type Battle struct {
	ID            BattleID
	Type          BattleType
	NatType       int
	Founder       string
	IP            string
	Port          int
	MaxPlayers    int
	Passworded    bool
	Rank          int
	MapHash       string
	Engine        string
	EngineVersion string
	Map           string
	Title         string
	Game          string
	Spectators    int
	Locked        bool
	Members       int
}
