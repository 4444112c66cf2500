package core

import (
	"container/list"
	"fmt"
	"slices"
	"sync"
)

// Presence is the in-memory view of users and battles built from server events.
//
// Only the network goroutine mutates it. Readers on other goroutines may call
// the lookup methods concurrently; every result is a copy, so callers never
// observe later mutations through a returned value.
type Presence struct {
	mu      sync.RWMutex
	users   map[string]*list.Element
	order   *list.List
	battles map[BattleID]*Battle

	// members is the battle -> user names index, rebuilt on demand after
	// any membership change.
	members      map[BattleID][]string
	membersDirty bool
}

// NewPresence creates an empty store.
func NewPresence() *Presence {
	return &Presence{
		users:   make(map[string]*list.Element),
		order:   list.New(),
		battles: make(map[BattleID]*Battle),
	}
}

// AddUser inserts a user, or replaces an existing entry with the same name
// in place. It reports whether the user was new.
func (p *Presence) AddUser(u User) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.users[u.Name]; ok {
		// ADDUSER carries no status or battle; those come from later lines.
		old := el.Value.(*User)
		u.Status = old.Status
		u.JoinedBattle = old.JoinedBattle
		*old = u
		return false
	}

	stored := u
	p.users[u.Name] = p.order.PushBack(&stored)
	p.moveMember(NoBattle, u.JoinedBattle)
	return true
}

// UpdateUser replaces the full record of a known user.
func (p *Presence) UpdateUser(u User) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.users[u.Name]
	if !ok {
		return fmt.Errorf("user %q: %w", u.Name, ErrNotFound)
	}
	old := el.Value.(*User)
	p.moveMember(old.JoinedBattle, u.JoinedBattle)
	*old = u
	return nil
}

// SetStatus replaces the status of a known user and returns the new record.
func (p *Presence) SetStatus(name string, status Status) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.users[name]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	u := el.Value.(*User)
	u.Status = status
	return *u, nil
}

// RemoveUser deletes a user and returns its last record.
func (p *Presence) RemoveUser(name string) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.users[name]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	u := *el.Value.(*User)
	p.order.Remove(el)
	delete(p.users, name)
	p.moveMember(u.JoinedBattle, NoBattle)
	return u, nil
}

// GetUser returns a copy of the named user.
func (p *Presence) GetUser(name string) (User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	el, ok := p.users[name]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	return *el.Value.(*User), nil
}

// ListUsers returns a snapshot in insertion order.
func (p *Presence) ListUsers() []User {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]User, 0, len(p.users))
	for el := p.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*User))
	}
	return out
}

// UserCount returns the number of known users.
func (p *Presence) UserCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

// Clear drops all users and battles. Called on disconnect.
func (p *Presence) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.users = make(map[string]*list.Element)
	p.order.Init()
	p.battles = make(map[BattleID]*Battle)
	p.members = nil
	p.membersDirty = false
}

// AddBattle registers a battle. The founder, when known, becomes its first member.
// It returns the stored battle and the founder's updated record, if any.
func (p *Presence) AddBattle(b Battle) (Battle, *User) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := b
	stored.Members = 0
	for el := p.order.Front(); el != nil; el = el.Next() {
		if el.Value.(*User).JoinedBattle == b.ID {
			stored.Members++
		}
	}
	p.battles[b.ID] = &stored
	p.membersDirty = true

	var founder *User
	if el, ok := p.users[b.Founder]; ok {
		u := el.Value.(*User)
		p.moveMember(u.JoinedBattle, b.ID)
		u.JoinedBattle = b.ID
		cp := *u
		founder = &cp
	}
	return *p.battles[b.ID], founder
}

// UpdateBattleInfo applies UPDATEBATTLEINFO fields.
func (p *Presence) UpdateBattleInfo(id BattleID, spectators int, locked bool, mapHash, mapName string) (Battle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.battles[id]
	if !ok {
		return Battle{}, fmt.Errorf("battle %d: %w", id, ErrNotFound)
	}
	b.Spectators = spectators
	b.Locked = locked
	b.MapHash = mapHash
	b.Map = mapName
	return *b, nil
}

// RemoveBattle deletes a battle and detaches its members. It returns the
// removed battle and the updated records of former members.
func (p *Presence) RemoveBattle(id BattleID) (Battle, []User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.battles[id]
	if !ok {
		return Battle{}, nil, fmt.Errorf("battle %d: %w", id, ErrNotFound)
	}

	var detached []User
	for _, name := range p.membersLocked(id) {
		u := p.users[name].Value.(*User)
		u.JoinedBattle = NoBattle
		detached = append(detached, *u)
	}
	removed := *b
	removed.Members = 0
	delete(p.battles, id)
	p.membersDirty = true
	return removed, detached, nil
}

// GetBattle returns a copy of the battle.
func (p *Presence) GetBattle(id BattleID) (Battle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	b, ok := p.battles[id]
	if !ok {
		return Battle{}, fmt.Errorf("battle %d: %w", id, ErrNotFound)
	}
	return *b, nil
}

// ListBattles returns a snapshot ordered by id.
func (p *Presence) ListBattles() []Battle {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Battle, 0, len(p.battles))
	for _, b := range p.battles {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Battle) int { return int(a.ID) - int(b.ID) })
	return out
}

// JoinBattle records that a user joined a battle, leaving any previous one.
func (p *Presence) JoinBattle(id BattleID, name string) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.battles[id]; !ok {
		return User{}, fmt.Errorf("battle %d: %w", id, ErrNotFound)
	}
	el, ok := p.users[name]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	u := el.Value.(*User)
	p.moveMember(u.JoinedBattle, id)
	u.JoinedBattle = id
	return *u, nil
}

// LeaveBattle records that a user left a battle. Leaving a battle the user
// is not in leaves the record untouched.
func (p *Presence) LeaveBattle(id BattleID, name string) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.users[name]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	u := el.Value.(*User)
	if u.JoinedBattle == id {
		p.moveMember(id, NoBattle)
		u.JoinedBattle = NoBattle
	}
	return *u, nil
}

// BattleMembers lists the names of users in a battle in user insertion order.
func (p *Presence) BattleMembers(id BattleID) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.battles[id]; !ok {
		return nil, fmt.Errorf("battle %d: %w", id, ErrNotFound)
	}
	return slices.Clone(p.membersLocked(id)), nil
}

// membersLocked returns the index entry for id, rebuilding the index if a
// membership change invalidated it. Caller holds the write lock.
func (p *Presence) membersLocked(id BattleID) []string {
	if p.membersDirty || p.members == nil {
		p.members = make(map[BattleID][]string, len(p.battles))
		for el := p.order.Front(); el != nil; el = el.Next() {
			u := el.Value.(*User)
			if _, ok := p.battles[u.JoinedBattle]; ok {
				p.members[u.JoinedBattle] = append(p.members[u.JoinedBattle], u.Name)
			}
		}
		p.membersDirty = false
	}
	return p.members[id]
}

// moveMember adjusts member counts for a membership change. Caller holds the write lock.
func (p *Presence) moveMember(from, to BattleID) {
	if from == to {
		return
	}
	if b, ok := p.battles[from]; ok && b.Members > 0 {
		b.Members--
	}
	if b, ok := p.battles[to]; ok {
		b.Members++
	}
	p.membersDirty = true
}
