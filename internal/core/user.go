package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the CLIENTSTATUS bitset of a user.
//
//	bit 0     in game
//	bit 1     away
//	bits 2-4  rank
//	bit 5     moderator (access)
//	bit 6     bot
type Status uint8

const (
	StatusInGame    Status = 1 << 0
	StatusAway      Status = 1 << 1
	StatusModerator Status = 1 << 5
	StatusBot       Status = 1 << 6

	statusRankShift = 2
	statusRankMask  = Status(0x7) << statusRankShift
)

// ParseStatus decodes the decimal status field of CLIENTSTATUS.
func ParseStatus(s string) (Status, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse status %q: %w", s, err)
	}
	return Status(v), nil
}

func (s Status) InGame() bool { return s&StatusInGame != 0 }
func (s Status) Away() bool { return s&StatusAway != 0 }
func (s Status) Moderator() bool { return s&StatusModerator != 0 }
func (s Status) Bot() bool { return s&StatusBot != 0 }

// Rank returns the 0-7 rank encoded in bits 2-4.
func (s Status) Rank() int {
	return int((s & statusRankMask) >> statusRankShift)
}

// WithAway returns s with the away bit set or cleared.
func (s Status) WithAway(away bool) Status {
	if away {
		return s | StatusAway
	}
	return s &^ StatusAway
}

// WithInGame returns s with the in-game bit set or cleared.
func (s Status) WithInGame(inGame bool) Status {
	if inGame {
		return s | StatusInGame
	}
	return s &^ StatusInGame
}

// String renders the wire form.
func (s Status) String() string {
	return strconv.Itoa(int(s))
}

// BattleID identifies a battle. NoBattle marks a user outside any battle.
type BattleID int

const NoBattle BattleID = -1

// ParseBattleID decodes a decimal battle id.
func ParseBattleID(s string) (BattleID, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return NoBattle, fmt.Errorf("parse battle id %q: %w", s, err)
	}
	if v < 0 {
		return NoBattle, fmt.Errorf("parse battle id %q: negative", s)
	}
	return BattleID(v), nil
}

func (id BattleID) String() string {
	return strconv.Itoa(int(id))
}

// User is a lobby user as announced by the server.
type User struct {
	Name         string
	Country      string
	CPU          int
	AccountID    string
	Status       Status
	JoinedBattle BattleID
}

// NewUser creates a user outside any battle.
func NewUser(name, country string) User {
	return User{
		Name:         name,
		Country:      country,
		JoinedBattle: NoBattle,
	}
}

// InBattle reports whether the user is a member of a battle.
func (u User) InBattle() bool {
	return u.JoinedBattle != NoBattle
}

// Flags renders the short flag string shown in user lists:
// B for bots, J for battle members, G for users in game.
func (u User) Flags() string {
	var b strings.Builder
	if u.Status.Bot() {
		b.WriteByte('B')
	}
	if u.InBattle() {
		b.WriteByte('J')
	}
	if u.Status.InGame() {
		b.WriteByte('G')
	}
	return b.String()
}
