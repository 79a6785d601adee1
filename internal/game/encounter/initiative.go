package encounter

import "github.com/emberfell/emberfell/internal/game/dice"

// RollInitiative rolls initiative for all combatants and sets their
// Initiative field. Formula: d20 + DEX modifier.
//
// Precondition: combatants must be non-nil; src must be non-nil.
// Postcondition: Each combatant's Initiative field is set to d20+DexMod.
func RollInitiative(combatants []*Combatant, src dice.Source) {
	for _, c := range combatants {
		c.Initiative = dice.D20(src) + c.DexMod
	}
}
