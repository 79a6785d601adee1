// Package room provides room membership tracking and per-room narrative
// history for the game backend.
package room

import (
	"fmt"
	"strings"
	"sync"
)

// Member tracks a connected player's presence in a room.
type Member struct {
	// UID is the unique per-connection player identifier issued at join.
	UID string
	// CharacterID is the database ID of the character for persistence.
	CharacterID int64
	// CharName is the character display name shown in-game.
	CharName string
	// Class is the character's class ID.
	Class string
	// Level is the character's current level.
	Level int
}

// Manager tracks room membership and recent narrative history.
// All methods are safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	members     map[string]*Member         // uid → member
	roomSets    map[string]map[string]bool // roomCode → set of UIDs
	history     map[string][]string        // roomCode → recent narrative entries
	historySize int
}

// NewManager creates an empty room Manager retaining up to historySize
// narrative entries per room.
func NewManager(historySize int) *Manager {
	if historySize <= 0 {
		historySize = 20
	}
	return &Manager{
		members:     make(map[string]*Member),
		roomSets:    make(map[string]map[string]bool),
		history:     make(map[string][]string),
		historySize: historySize,
	}
}

// Join registers a member in the given room.
//
// Precondition: uid, charName, and roomCode must be non-empty.
// Postcondition: Returns the created Member, or an error if the UID is
// already registered.
func (m *Manager) Join(uid, charName string, characterID int64, roomCode, class string, level int) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.members[uid]; exists {
		return nil, fmt.Errorf("member %q already joined", uid)
	}

	mem := &Member{
		UID:         uid,
		CharacterID: characterID,
		CharName:    charName,
		Class:       class,
		Level:       level,
	}
	m.members[uid] = mem
	if m.roomSets[roomCode] == nil {
		m.roomSets[roomCode] = make(map[string]bool)
	}
	m.roomSets[roomCode][uid] = true
	return mem, nil
}

// Leave removes a member and cleans up room occupancy.
//
// Precondition: uid must be non-empty.
// Postcondition: The member is removed from all tracking. Returns an error
// if not found.
func (m *Manager) Leave(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.members[uid]; !exists {
		return fmt.Errorf("member %q not found", uid)
	}
	for code, rs := range m.roomSets {
		if rs[uid] {
			delete(rs, uid)
			if len(rs) == 0 {
				delete(m.roomSets, code)
			}
		}
	}
	delete(m.members, uid)
	return nil
}

// MembersInRoom returns a snapshot of all members in the given room.
//
// Postcondition: Returns a slice of members (may be empty).
func (m *Manager) MembersInRoom(roomCode string) []*Member {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uids, ok := m.roomSets[roomCode]
	if !ok {
		return nil
	}
	out := make([]*Member, 0, len(uids))
	for uid := range uids {
		if mem, ok := m.members[uid]; ok {
			out = append(out, mem)
		}
	}
	return out
}

// Get returns the member with the given UID.
//
// Postcondition: Returns (member, true) if found, or (nil, false) otherwise.
func (m *Manager) Get(uid string) (*Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[uid]
	return mem, ok
}

// RoomOf returns the room code a member currently occupies.
//
// Postcondition: Returns (roomCode, true) if the member is in a room, or
// ("", false) otherwise.
func (m *Manager) RoomOf(uid string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for code, rs := range m.roomSets {
		if rs[uid] {
			return code, true
		}
	}
	return "", false
}

// GetByCharName returns the member in roomCode whose character name matches
// name, compared case-insensitively.
//
// Postcondition: Returns (member, true) if found, or (nil, false) otherwise.
func (m *Manager) GetByCharName(roomCode, name string) (*Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uids, ok := m.roomSets[roomCode]
	if !ok {
		return nil, false
	}
	for uid := range uids {
		mem, ok := m.members[uid]
		if ok && strings.EqualFold(mem.CharName, name) {
			return mem, true
		}
	}
	return nil, false
}

// AppendHistory records a narrative entry for the room, evicting the oldest
// entry once the retention limit is reached.
//
// Precondition: roomCode must be non-empty; empty entries are ignored.
func (m *Manager) AppendHistory(roomCode, entry string) {
	if entry == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h := append(m.history[roomCode], entry)
	if len(h) > m.historySize {
		h = h[len(h)-m.historySize:]
	}
	m.history[roomCode] = h
}

// History returns a copy of the room's retained narrative entries, oldest
// first.
func (m *Manager) History(roomCode string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.history[roomCode]
	out := make([]string, len(h))
	copy(out, h)
	return out
}

// MemberCount returns the total number of joined members.
func (m *Manager) MemberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members)
}
