// Package encounter implements the combat turn state for Emberfell rooms:
// initiative order, the current actor, round tracking, and the advancement
// rules that skip defeated combatants and detect the end of combat.
package encounter

import (
	"strings"
	"time"
)

// Kind distinguishes player-controlled combatants from AI-controlled monsters.
type Kind int

const (
	KindPlayer Kind = iota
	KindMonster
)

// Outcome describes how an encounter ended.
type Outcome string

const (
	// OutcomeVictory means every monster was defeated.
	OutcomeVictory Outcome = "victory"
	// OutcomeDefeat means every player was defeated.
	OutcomeDefeat Outcome = "defeat"
	// OutcomeFled means the party escaped before a resolution.
	OutcomeFled Outcome = "fled"
	// OutcomeStopped means the encounter was ended explicitly.
	OutcomeStopped Outcome = "stopped"
)

// Status is a temporary effect on a combatant.
type Status struct {
	Effect string
	// RoundsLeft is decremented on each round wrap; 0 means the effect
	// lasts until combat ends.
	RoundsLeft int
}

// Combatant is one participant in an encounter's initiative order.
type Combatant struct {
	// ID identifies the backing record: a character ID for players, a
	// spawned monster instance ID for monsters.
	ID string
	// Name is the display name directives are matched against.
	Name string
	Kind Kind

	MaxHP     int
	CurrentHP int
	AC        int
	// DexMod feeds the initiative roll.
	DexMod int
	// XPValue is the experience awarded when this combatant is a defeated
	// monster. Zero for players.
	XPValue int
	// Stats is the opaque stat block carried for the narrator's context.
	Stats map[string]any

	Initiative int
	Statuses   []Status
}

// IsDefeated reports whether this combatant is out of the fight.
//
// Postcondition: Returns true iff CurrentHP <= 0.
func (c *Combatant) IsDefeated() bool {
	return c.CurrentHP <= 0
}

// ApplyDamage reduces CurrentHP by amount, flooring at zero.
//
// Precondition: amount must be >= 0.
// Postcondition: CurrentHP is in [0, MaxHP].
func (c *Combatant) ApplyDamage(amount int) {
	c.CurrentHP -= amount
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
}

// AddStatus appends an effect to the combatant. Duplicate effects refresh
// the duration rather than stacking.
func (c *Combatant) AddStatus(effect string, rounds int) {
	for i := range c.Statuses {
		if c.Statuses[i].Effect == effect {
			c.Statuses[i].RoundsLeft = rounds
			return
		}
	}
	c.Statuses = append(c.Statuses, Status{Effect: effect, RoundsLeft: rounds})
}

// Encounter holds the live turn state of a single combat in a room.
type Encounter struct {
	// ID uniquely identifies this encounter for archival.
	ID string
	// RoomCode is the room this combat takes place in.
	RoomCode string
	// Combatants is the initiative-ordered list of participants.
	Combatants []*Combatant
	// TurnIndex is the index of the current actor.
	// Invariant: while Active, TurnIndex is a valid index into Combatants.
	TurnIndex int
	// Round is the current round number, starting at 1.
	Round int
	// Active is false once combat has been resolved.
	Active bool
	// Outcome is set when Active becomes false.
	Outcome Outcome
	// StartedAt records when initiative was rolled.
	StartedAt time.Time
}

// CurrentActor returns the combatant whose turn it is.
//
// Postcondition: Returns nil if the encounter is inactive or TurnIndex is
// out of range.
func (e *Encounter) CurrentActor() *Combatant {
	if !e.Active || e.TurnIndex < 0 || e.TurnIndex >= len(e.Combatants) {
		return nil
	}
	return e.Combatants[e.TurnIndex]
}

// FindCombatant returns the combatant with the given ID, or nil.
func (e *Encounter) FindCombatant(id string) *Combatant {
	for _, c := range e.Combatants {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindCombatantByName returns the first combatant whose display name matches
// name, compared case-insensitively, or nil.
func (e *Encounter) FindCombatantByName(name string) *Combatant {
	for _, c := range e.Combatants {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// hasLiving reports whether any combatant of the given kind is still up.
func (e *Encounter) hasLiving(kind Kind) bool {
	for _, c := range e.Combatants {
		if c.Kind == kind && !c.IsDefeated() {
			return true
		}
	}
	return false
}

// HasLivingPlayers reports whether any player combatant is still up.
func (e *Encounter) HasLivingPlayers() bool { return e.hasLiving(KindPlayer) }

// HasLivingMonsters reports whether any monster combatant is still up.
func (e *Encounter) HasLivingMonsters() bool { return e.hasLiving(KindMonster) }

// AdvanceResult describes one turn transition.
type AdvanceResult struct {
	// Ended is true when combat resolved instead of selecting a new actor.
	Ended   bool
	Outcome Outcome
	// Actor is the new current actor; nil when Ended.
	Actor *Combatant
	// Round is the round number after the transition.
	Round int
	// Wrapped is true when the scan passed the end of the initiative list.
	Wrapped bool
}

// Advance moves to the next living combatant in initiative order.
//
// Starting after the current index, the scan proceeds circularly and skips
// defeated combatants, incrementing Round when it wraps past the end of the
// list. If either side has no living combatants the encounter transitions to
// its terminal state instead.
//
// Precondition: the encounter must be Active with at least one combatant.
// Postcondition: either Ended is true and Active is false, or Actor is a
// living combatant at the updated TurnIndex.
func (e *Encounter) Advance() AdvanceResult {
	if !e.HasLivingMonsters() || !e.HasLivingPlayers() {
		return e.end(e.resolveOutcome())
	}

	wrapped := false
	for i := 0; i < len(e.Combatants); i++ {
		next := (e.TurnIndex + 1 + i) % len(e.Combatants)
		if next <= e.TurnIndex && !wrapped {
			wrapped = true
			e.Round++
			e.tickStatuses()
		}
		if e.Combatants[next].IsDefeated() {
			continue
		}
		e.TurnIndex = next
		return AdvanceResult{
			Actor:   e.Combatants[next],
			Round:   e.Round,
			Wrapped: wrapped,
		}
	}

	// Both sides had living members above, so the scan cannot exhaust the
	// list; this is unreachable but keeps the state machine total.
	return e.end(OutcomeDefeat)
}

// End resolves the encounter with an explicit outcome (flee, stop).
//
// Postcondition: Active is false and Outcome is set.
func (e *Encounter) End(outcome Outcome) AdvanceResult {
	return e.end(outcome)
}

func (e *Encounter) end(outcome Outcome) AdvanceResult {
	e.Active = false
	e.Outcome = outcome
	return AdvanceResult{Ended: true, Outcome: outcome, Round: e.Round}
}

// resolveOutcome determines the terminal outcome by which side survives.
func (e *Encounter) resolveOutcome() Outcome {
	if e.HasLivingPlayers() {
		return OutcomeVictory
	}
	return OutcomeDefeat
}

// tickStatuses decrements round-scoped statuses on every combatant, removing
// expired ones. Effects with RoundsLeft 0 persist until combat ends.
func (e *Encounter) tickStatuses() {
	for _, c := range e.Combatants {
		kept := c.Statuses[:0]
		for _, s := range c.Statuses {
			if s.RoundsLeft > 1 || s.RoundsLeft == 0 {
				if s.RoundsLeft > 1 {
					s.RoundsLeft--
				}
				kept = append(kept, s)
			}
		}
		c.Statuses = kept
	}
}
