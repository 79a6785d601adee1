// Package narrator generates dungeon-master narrative for combat turns.
//
// The narrative may embed bracketed directive tags (for example
// "[XP: Alice | 50]") that the game layer parses and applies as mechanical
// effects. The narrator itself never mutates game state.
package narrator

import "context"

// Combatant is the narrator's view of one participant in the encounter.
type Combatant struct {
	Name      string
	Kind      string // "player" or "monster"
	CurrentHP int
	MaxHP     int
}

// TurnContext carries everything the generator needs to narrate one
// monster turn.
type TurnContext struct {
	RoomCode   string
	ActorName  string
	Round      int
	Combatants []Combatant
	// History holds recent narrative entries, oldest first.
	History []string
}

// Generator produces the narrative for a single monster turn.
type Generator interface {
	// Narrate returns the dungeon-master text for the actor's turn.
	//
	// Precondition: ctx must be non-nil; tc.ActorName must be non-empty.
	// Postcondition: Returns non-empty text on a nil error.
	Narrate(ctx context.Context, tc TurnContext) (string, error)
}
