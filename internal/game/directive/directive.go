// Package directive extracts structured game-action directives from
// free-form narrative text produced by the Dungeon Master model.
//
// Directives are bracketed tags embedded in prose, e.g.
//
//	[XP: Alice | 200]
//	[MONSTER_DEFEATED: Goblin | XP: 101 | participants: Alice,Bob]
//
// The tag name is case-insensitive and fields are pipe-delimited. Parsing is
// best-effort: malformed tags are counted, never surfaced as errors, because
// the text comes from a model that will occasionally get the grammar wrong.
package directive

// Directive is a structured instruction decoded from narrative text.
// The concrete types below are the only implementations.
type Directive interface {
	directive()
}

// ExperienceAward grants experience points to a single named character.
type ExperienceAward struct {
	// TargetName is matched case-insensitively against character display names.
	TargetName string
	// Amount is the non-negative XP amount.
	Amount int
}

// MonsterDefeated records a monster kill whose XP value is split across the
// named participants.
type MonsterDefeated struct {
	MonsterName string
	// Amount is the monster's total XP value, split across Participants.
	Amount int
	// Participants is the ordered list of character names sharing the award.
	Participants []string
}

// StatusApplied applies a named status effect to a character for a number of
// rounds.
type StatusApplied struct {
	TargetName string
	Effect     string
	// Rounds is the effect duration; 0 means until combat ends.
	Rounds int
}

// GoldAward grants currency to a single named character.
type GoldAward struct {
	TargetName string
	Amount     int
}

// DamageDealt reduces a combatant's hit points. The target may be a player
// or a monster in the active encounter.
type DamageDealt struct {
	TargetName string
	Amount     int
}

// ReputationChange adjusts a character's reputation. Amount may be negative.
type ReputationChange struct {
	TargetName string
	Amount     int
}

func (ExperienceAward) directive()  {}
func (MonsterDefeated) directive()  {}
func (StatusApplied) directive()    {}
func (GoldAward) directive()        {}
func (DamageDealt) directive()      {}
func (ReputationChange) directive() {}
