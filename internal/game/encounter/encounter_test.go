package encounter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfell/emberfell/internal/game/encounter"
)

// fixedSrc is a deterministic dice source for testing.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(_ int) int { return f.val }

func fourCombatants() []*encounter.Combatant {
	return []*encounter.Combatant{
		{ID: "c1", Name: "Alice", Kind: encounter.KindPlayer, MaxHP: 20, CurrentHP: 20, AC: 14, Initiative: 19},
		{ID: "c2", Name: "Bob", Kind: encounter.KindPlayer, MaxHP: 18, CurrentHP: 18, AC: 12, Initiative: 15},
		{ID: "m1", Name: "Goblin", Kind: encounter.KindMonster, MaxHP: 7, CurrentHP: 7, AC: 13, Initiative: 11, XPValue: 50},
		{ID: "m2", Name: "Wolf", Kind: encounter.KindMonster, MaxHP: 11, CurrentHP: 11, AC: 12, Initiative: 8, XPValue: 50},
	}
}

func startEncounter(t *testing.T) (*encounter.Engine, *encounter.Encounter) {
	t.Helper()
	eng := encounter.NewEngine()
	enc, err := eng.Start("room1", fourCombatants())
	require.NoError(t, err)
	return eng, enc
}

func TestStartSortsByInitiative(t *testing.T) {
	_, enc := startEncounter(t)
	require.Len(t, enc.Combatants, 4)
	for i := 1; i < len(enc.Combatants); i++ {
		assert.GreaterOrEqual(t, enc.Combatants[i-1].Initiative, enc.Combatants[i].Initiative)
	}
	assert.Equal(t, 1, enc.Round)
	assert.True(t, enc.Active)
	assert.NotEmpty(t, enc.ID)
}

func TestStartRejectsDuplicateRoom(t *testing.T) {
	eng, _ := startEncounter(t)
	_, err := eng.Start("room1", fourCombatants())
	assert.Error(t, err)
}

func TestAdvanceSelectsNextLiving(t *testing.T) {
	_, enc := startEncounter(t)

	res := enc.Advance()
	require.False(t, res.Ended)
	assert.Equal(t, "Bob", res.Actor.Name)
	assert.Equal(t, 1, res.Round)
	assert.False(t, res.Wrapped)
}

func TestAdvanceSkipsDefeated(t *testing.T) {
	_, enc := startEncounter(t)

	// Defeat the combatant at index 2; advancing from index 1 must land
	// on index 3, never on 2.
	enc.TurnIndex = 1
	enc.Combatants[2].CurrentHP = 0

	res := enc.Advance()
	require.False(t, res.Ended)
	assert.Equal(t, enc.Combatants[3], res.Actor)
	assert.Equal(t, 3, enc.TurnIndex)
}

func TestAdvanceWrapsAndIncrementsRound(t *testing.T) {
	_, enc := startEncounter(t)

	enc.TurnIndex = 3
	res := enc.Advance()
	require.False(t, res.Ended)
	assert.True(t, res.Wrapped)
	assert.Equal(t, 2, res.Round)
	assert.Equal(t, 0, enc.TurnIndex)
}

func TestAdvanceEndsOnMonsterWipe(t *testing.T) {
	_, enc := startEncounter(t)

	for _, c := range enc.Combatants {
		if c.Kind == encounter.KindMonster {
			c.CurrentHP = 0
		}
	}

	res := enc.Advance()
	require.True(t, res.Ended)
	assert.Equal(t, encounter.OutcomeVictory, res.Outcome)
	assert.False(t, enc.Active)
}

func TestAdvanceEndsOnPartyWipe(t *testing.T) {
	_, enc := startEncounter(t)

	for _, c := range enc.Combatants {
		if c.Kind == encounter.KindPlayer {
			c.CurrentHP = 0
		}
	}

	res := enc.Advance()
	require.True(t, res.Ended)
	assert.Equal(t, encounter.OutcomeDefeat, res.Outcome)
}

func TestEndExplicitOutcome(t *testing.T) {
	_, enc := startEncounter(t)
	res := enc.End(encounter.OutcomeFled)
	assert.True(t, res.Ended)
	assert.Equal(t, encounter.OutcomeFled, enc.Outcome)
	assert.False(t, enc.Active)
	assert.Nil(t, enc.CurrentActor())
}

func TestStatusTicksOnRoundWrap(t *testing.T) {
	_, enc := startEncounter(t)
	bob := enc.FindCombatant("c2")
	require.NotNil(t, bob)

	bob.AddStatus("poisoned", 2)
	bob.AddStatus("cursed", 0) // until combat ends

	enc.TurnIndex = 3
	enc.Advance() // wraps: poisoned 2 -> 1
	require.Len(t, bob.Statuses, 2)
	assert.Equal(t, 1, bob.Statuses[0].RoundsLeft)

	enc.TurnIndex = 3
	enc.Advance() // wraps: poisoned expires, cursed persists
	require.Len(t, bob.Statuses, 1)
	assert.Equal(t, "cursed", bob.Statuses[0].Effect)
}

func TestAddStatusRefreshesDuplicate(t *testing.T) {
	c := &encounter.Combatant{Name: "Bob"}
	c.AddStatus("stunned", 1)
	c.AddStatus("stunned", 3)
	require.Len(t, c.Statuses, 1)
	assert.Equal(t, 3, c.Statuses[0].RoundsLeft)
}

func TestApplyDamageClampsAtZero(t *testing.T) {
	c := &encounter.Combatant{MaxHP: 10, CurrentHP: 3}
	c.ApplyDamage(10)
	assert.Equal(t, 0, c.CurrentHP)
	assert.True(t, c.IsDefeated())
}

func TestRollInitiativeSetsField(t *testing.T) {
	combatants := fourCombatants()
	combatants[0].DexMod = 3
	encounter.RollInitiative(combatants, fixedSrc{val: 9}) // d20 = 10
	assert.Equal(t, 13, combatants[0].Initiative)
	assert.Equal(t, 10, combatants[1].Initiative)
}

func TestEngineRemove(t *testing.T) {
	eng, _ := startEncounter(t)
	assert.Equal(t, 1, eng.ActiveCount())
	eng.Remove("room1")
	_, ok := eng.Get("room1")
	assert.False(t, ok)
	assert.Equal(t, 0, eng.ActiveCount())
}
