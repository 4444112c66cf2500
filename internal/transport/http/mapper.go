package http

import (
	"time"

	"github.com/vovakirdan/lobbyclient/internal/core"
	"github.com/vovakirdan/lobbyclient/internal/store"
)

// StatusResponse is the decoded status bitfield of a user.
type StatusResponse struct {
	InGame    bool `json:"in_game"`
	Away      bool `json:"away"`
	Rank      int  `json:"rank"`
	Moderator bool `json:"moderator"`
	Bot       bool `json:"bot"`
}

// UserResponse represents a lobby user in API responses.
type UserResponse struct {
	Name      string         `json:"name"`
	Country   string         `json:"country"`
	CPU       int            `json:"cpu"`
	AccountID string         `json:"account_id,omitempty"`
	Status    StatusResponse `json:"status"`
	Battle    *int           `json:"battle,omitempty"`
	Flags     string         `json:"flags"`
}

// BattleResponse represents a battle in API responses.
type BattleResponse struct {
	ID            int    `json:"id"`
	Replay        bool   `json:"replay"`
	Founder       string `json:"founder"`
	IP            string `json:"ip"`
	Port          int    `json:"port"`
	MaxPlayers    int    `json:"max_players"`
	Passworded    bool   `json:"passworded"`
	Rank          int    `json:"rank"`
	MapHash       string `json:"map_hash"`
	Engine        string `json:"engine,omitempty"`
	EngineVersion string `json:"engine_version,omitempty"`
	Map           string `json:"map"`
	Title         string `json:"title"`
	Game          string `json:"game"`
	Spectators    int    `json:"spectators"`
	Locked        bool   `json:"locked"`
	Members       int    `json:"members"`
}

// SessionResponse represents the current lobby session.
type SessionResponse struct {
	ID            string     `json:"id,omitempty"`
	Phase         string     `json:"phase"`
	Host          string     `json:"host,omitempty"`
	Port          int        `json:"port,omitempty"`
	Username      string     `json:"username,omitempty"`
	ServerVersion string     `json:"server_version,omitempty"`
	EngineVersion string     `json:"engine_version,omitempty"`
	Away          bool       `json:"away"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	LastPong      *time.Time `json:"last_pong,omitempty"`
}

// EventResponse is one bus event as streamed over /ws.
type EventResponse struct {
	Seq       uint64          `json:"seq"`
	At        time.Time       `json:"at"`
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id,omitempty"`
	Connected *bool           `json:"connected,omitempty"`
	Success   *bool           `json:"success,omitempty"`
	Info      string          `json:"info,omitempty"`
	User      *UserResponse   `json:"user,omitempty"`
	Users     []UserResponse  `json:"users,omitempty"`
	Battle    *BattleResponse `json:"battle,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	From      string          `json:"from,omitempty"`
	Text      string          `json:"text,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// CommandRequest is a user command submitted over REST or /ws.
type CommandRequest struct {
	Kind     string `json:"kind" binding:"required"`
	Channel  string `json:"channel,omitempty"`
	Key      string `json:"key,omitempty"`
	Text     string `json:"text,omitempty"`
	BattleID *int   `json:"battle_id,omitempty"`
	Password string `json:"password,omitempty"`
	User     string `json:"user,omitempty"`
	Away     bool   `json:"away,omitempty"`
}

// MessageResponse represents a logged chat line.
type MessageResponse struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Channel   string    `json:"channel,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// HistorySessionResponse represents a logged session.
type HistorySessionResponse struct {
	ID        string     `json:"id"`
	Host      string     `json:"host"`
	Username  string     `json:"username,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

func userResponse(u core.User) UserResponse {
	resp := UserResponse{
		Name:      u.Name,
		Country:   u.Country,
		CPU:       u.CPU,
		AccountID: u.AccountID,
		Status: StatusResponse{
			InGame:    u.Status.InGame(),
			Away:      u.Status.Away(),
			Rank:      u.Status.Rank(),
			Moderator: u.Status.Moderator(),
			Bot:       u.Status.Bot(),
		},
		Flags: u.Flags(),
	}
	if u.InBattle() {
		id := int(u.JoinedBattle)
		resp.Battle = &id
	}
	return resp
}

func usersResponse(users []core.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

func battleResponse(b core.Battle) BattleResponse {
	return BattleResponse{
		ID:            int(b.ID),
		Replay:        b.Type == core.BattleTypeReplay,
		Founder:       b.Founder,
		IP:            b.IP,
		Port:          b.Port,
		MaxPlayers:    b.MaxPlayers,
		Passworded:    b.Passworded,
		Rank:          b.Rank,
		MapHash:       b.MapHash,
		Engine:        b.Engine,
		EngineVersion: b.EngineVersion,
		Map:           b.Map,
		Title:         b.Title,
		Game:          b.Game,
		Spectators:    b.Spectators,
		Locked:        b.Locked,
		Members:       b.Members,
	}
}

func sessionResponse(s core.Session) SessionResponse {
	resp := SessionResponse{
		ID:            s.ID,
		Phase:         s.Phase.String(),
		Host:          s.Host,
		Port:          s.Port,
		Username:      s.Username,
		ServerVersion: s.ServerVersion,
		EngineVersion: s.EngineVersion,
		Away:          s.Away(),
	}
	if !s.StartedAt.IsZero() {
		resp.StartedAt = &s.StartedAt
	}
	if !s.LastPong.IsZero() {
		resp.LastPong = &s.LastPong
	}
	return resp
}

func eventResponse(ev core.Event) EventResponse {
	resp := EventResponse{
		Seq:       ev.Seq,
		At:        ev.At,
		Kind:      ev.Kind.String(),
		SessionID: ev.SessionID,
		Info:      ev.Info,
		Channel:   ev.Channel,
		From:      ev.From,
		Text:      ev.Text,
	}
	if ev.Err != nil {
		resp.Error = ev.Err.Error()
	}

	switch ev.Kind {
	case core.EventConnected:
		resp.Connected = &ev.Connected
	case core.EventLoginResult:
		resp.Success = &ev.Success
		if ev.Success {
			resp.Users = usersResponse(ev.Users)
		}
	case core.EventUserJoined, core.EventUserChanged, core.EventUserLeft:
		u := userResponse(ev.User)
		resp.User = &u
	case core.EventBattleOpened, core.EventBattleClosed, core.EventBattleChanged, core.EventBattleJoined:
		b := battleResponse(ev.Battle)
		resp.Battle = &b
	case core.EventDownloadDone:
		if ev.Download != nil {
			resp.Success = &ev.Download.Success
			resp.Info = ev.Download.Name
		}
	case core.EventStartDemo:
		if ev.Demo != nil {
			resp.Info = ev.Demo.File
			resp.Text = ev.Demo.EngineVersion
		}
	}
	return resp
}

// toCommand maps a request to a core command. Field validation is left to
// the client so REST and /ws report the same errors.
func (r CommandRequest) toCommand() (core.Command, error) {
	kind, ok := core.ParseCommandKind(r.Kind)
	if !ok {
		return core.Command{}, core.BadRequest("unknown command %q", r.Kind)
	}

	cmd := core.Command{
		Kind:     kind,
		Channel:  r.Channel,
		Key:      r.Key,
		Text:     r.Text,
		Password: r.Password,
		User:     r.User,
		Away:     r.Away,
	}
	if kind == core.CommandJoinBattle {
		if r.BattleID == nil {
			return core.Command{}, core.BadRequest("battle_id is required")
		}
		cmd.BattleID = core.BattleID(*r.BattleID)
	}
	return cmd, nil
}

func messageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Kind:      string(m.Kind),
		Channel:   m.Channel,
		Sender:    m.Sender,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func historySessionResponse(s *store.Session) HistorySessionResponse {
	return HistorySessionResponse{
		ID:        s.ID,
		Host:      s.Host,
		Username:  s.Username,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Reason:    s.Reason,
	}
}
