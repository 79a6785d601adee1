package encounter

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine manages all active encounters, keyed by room code.
// All methods are safe for concurrent use of the map itself; mutation of an
// individual Encounter is serialized by the orchestrator's processing marker.
type Engine struct {
	mu         sync.RWMutex
	encounters map[string]*Encounter
}

// NewEngine creates an empty encounter Engine.
//
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine() *Engine {
	return &Engine{encounters: make(map[string]*Encounter)}
}

// Start begins a new encounter in roomCode with the given combatants.
// Combatants are sorted by initiative descending before storing.
//
// Precondition: roomCode must be non-empty; combatants must have at least 2
// entries with both kinds represented.
// Postcondition: Returns the new active Encounter, or an error if an
// encounter is already active in roomCode.
func (g *Engine) Start(roomCode string, combatants []*Combatant) (*Encounter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.encounters[roomCode]; exists {
		return nil, fmt.Errorf("encounter already active in room %q", roomCode)
	}

	sorted := make([]*Combatant, len(combatants))
	copy(sorted, combatants)
	sortByInitiativeDesc(sorted)

	enc := &Encounter{
		ID:         uuid.NewString(),
		RoomCode:   roomCode,
		Combatants: sorted,
		TurnIndex:  0,
		Round:      1,
		Active:     true,
		StartedAt:  time.Now(),
	}
	g.encounters[roomCode] = enc
	return enc, nil
}

// Get returns the encounter for roomCode.
//
// Postcondition: Returns (encounter, true) if found, or (nil, false) otherwise.
func (g *Engine) Get(roomCode string) (*Encounter, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	enc, ok := g.encounters[roomCode]
	return enc, ok
}

// Remove deletes the encounter record for roomCode.
//
// Precondition: roomCode must be non-empty.
func (g *Engine) Remove(roomCode string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.encounters, roomCode)
}

// ActiveCount returns the number of tracked encounters.
func (g *Engine) ActiveCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.encounters)
}

// sortByInitiativeDesc sorts combatants in place, highest initiative first.
// The sort is stable so equal initiatives keep their roll order.
func sortByInitiativeDesc(combatants []*Combatant) {
	n := len(combatants)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && combatants[j].Initiative > combatants[j-1].Initiative; j-- {
			combatants[j], combatants[j-1] = combatants[j-1], combatants[j]
		}
	}
}
