// Package character defines the player character domain model and level
// progression rules.
package character

import "time"

// AbilityScores holds the six ability score values for a character.
type AbilityScores struct {
	Strength     int
	Dexterity    int
	Constitution int
	Intelligence int
	Wisdom       int
	Charisma     int
}

// Modifier returns the ability modifier for a given score using floor
// division: floor((score - 10) / 2).
func Modifier(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// Character represents a player character's persistent state.
//
// ID is set by the persistence layer; a zero value indicates an unsaved
// character.
type Character struct {
	ID     int64
	RoomID string // room code the character currently belongs to

	Name       string
	Class      string
	Level      int
	Experience int
	Gold       int
	Reputation int

	Abilities AbilityScores
	MaxHP     int
	CurrentHP int
	AC        int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyDamage reduces CurrentHP by amount, flooring at zero.
//
// Precondition: amount must be >= 0.
// Postcondition: CurrentHP is in [0, MaxHP].
func (c *Character) ApplyDamage(amount int) {
	c.CurrentHP -= amount
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
}

// Heal increases CurrentHP by amount, capped at MaxHP.
//
// Precondition: amount must be >= 0.
// Postcondition: CurrentHP is in [0, MaxHP].
func (c *Character) Heal(amount int) {
	c.CurrentHP += amount
	if c.CurrentHP > c.MaxHP {
		c.CurrentHP = c.MaxHP
	}
}

// IsDefeated reports whether the character is at zero hit points.
func (c *Character) IsDefeated() bool {
	return c.CurrentHP <= 0
}
