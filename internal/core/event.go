package core

import (
	"fmt"
	"time"
)

// EventKind is a notification the engine emits to consumers.
type EventKind int

const (
	// EventConnected reports transport state; Connected is false after every teardown.
	EventConnected EventKind = iota
	// EventLoginResult reports the outcome of the login handshake.
	EventLoginResult
	// EventServerMsg carries a SERVERMSG/SERVERMSGBOX/MOTD text.
	EventServerMsg
	// EventUserJoined notifies about a user that came online.
	EventUserJoined
	// EventUserChanged notifies about a status or battle membership change.
	EventUserChanged
	// EventUserLeft notifies about a user that went offline.
	EventUserLeft
	// EventRing notifies that someone rang us.
	EventRing
	// EventJoinBattleFailed reports a rejected JOINBATTLE.
	EventJoinBattleFailed
	// EventDownloadDone is raised by the download collaborator.
	EventDownloadDone
	// EventStartDemo is raised by the replay collaborator.
	EventStartDemo

	// EventBattleOpened notifies about a new battle.
	EventBattleOpened
	// EventBattleClosed notifies about a battle that was closed.
	EventBattleClosed
	// EventBattleChanged notifies about UPDATEBATTLEINFO.
	EventBattleChanged
	// EventBattleJoined confirms our own JOINBATTLE.
	EventBattleJoined
	// EventChannelJoined confirms our own JOIN.
	EventChannelJoined
	// EventJoinChannelFailed reports a rejected JOIN.
	EventJoinChannelFailed
	// EventSaid carries a channel chat line.
	EventSaid
	// EventSaidPrivate carries a private chat line.
	EventSaidPrivate
	// EventProtocolError reports a dropped line.
	EventProtocolError
)

var eventKindNames = map[EventKind]string{
	EventConnected:         "connected",
	EventLoginResult:       "login_result",
	EventServerMsg:         "server_msg",
	EventUserJoined:        "user_joined",
	EventUserChanged:       "user_changed",
	EventUserLeft:          "user_left",
	EventRing:              "ring",
	EventJoinBattleFailed:  "join_battle_failed",
	EventDownloadDone:      "download_done",
	EventStartDemo:         "start_demo",
	EventBattleOpened:      "battle_opened",
	EventBattleClosed:      "battle_closed",
	EventBattleChanged:     "battle_changed",
	EventBattleJoined:      "battle_joined",
	EventChannelJoined:     "channel_joined",
	EventJoinChannelFailed: "join_channel_failed",
	EventSaid:              "said",
	EventSaidPrivate:       "said_private",
	EventProtocolError:     "protocol_error",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is an immutable value handed from the network goroutine to consumers.
// Slices are freshly allocated per event and never touched by the producer again.
type Event struct {
	Kind      EventKind
	Seq       uint64 // stamped by the bus in publish order
	At        time.Time
	SessionID string // session that produced the event

	Connected bool
	Success   bool
	Info      string // server address, login user, denial or failure reason

	User    User
	Users   []User
	Battle  Battle
	Channel string
	From    string
	Text    string

	Download *DownloadEvent
	Demo     *DemoEvent
	Err      error
}

// DownloadType is the kind of content a download collaborator fetched.
type DownloadType int

const (
	DownloadMap DownloadType = iota
	DownloadGame
	DownloadEngine
)

// DownloadEvent describes a finished download.
type DownloadEvent struct {
	Type    DownloadType
	Name    string
	Success bool
}

// DemoEvent asks the consumer to launch a replay.
type DemoEvent struct {
	EngineVersion string
	File          string
}
