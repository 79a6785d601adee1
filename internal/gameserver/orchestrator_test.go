package gameserver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/broadcast"
	"github.com/emberfell/emberfell/internal/game/character"
	"github.com/emberfell/emberfell/internal/game/encounter"
	"github.com/emberfell/emberfell/internal/game/room"
	"github.com/emberfell/emberfell/internal/narrator"
	"github.com/emberfell/emberfell/internal/storage/archive"
)

type orchestratorHarness struct {
	engine *encounter.Engine
	rooms  *room.Manager
	hub    *broadcast.Hub
	store  *fakeStore
	arch   archive.Archive
	orch   *Orchestrator
	sub    *broadcast.Subscriber
}

func newOrchestratorHarness(t *testing.T, gen narrator.Generator, chars ...*character.Character) *orchestratorHarness {
	t.Helper()

	h := &orchestratorHarness{
		engine: encounter.NewEngine(),
		rooms:  room.NewManager(0),
		hub:    broadcast.NewHub(zap.NewNop(), 64),
		store:  newFakeStore(chars...),
		arch:   archive.NewMemory(),
	}
	exec := NewExecutor(h.store, h.hub, zap.NewNop())
	h.orch = NewOrchestrator(h.engine, h.rooms, exec, gen, h.hub, nil, h.arch, zap.NewNop(), 0)
	h.sub = h.hub.Subscribe("tavern", "observer")
	return h
}

// startEncounter installs combatants in initiative-list order, bypassing
// initiative rolls so tests control exactly who acts first.
func (h *orchestratorHarness) startEncounter(t *testing.T, combatants ...*encounter.Combatant) *encounter.Encounter {
	t.Helper()
	enc, err := h.engine.Start("tavern", combatants)
	require.NoError(t, err)
	return enc
}

func playerCombatant(id int64, name string) *encounter.Combatant {
	return &encounter.Combatant{
		ID:        formatID(id),
		Name:      name,
		Kind:      encounter.KindPlayer,
		MaxHP:     10,
		CurrentHP: 10,
		AC:        15,
	}
}

func monsterCombatant(id, name string, hp, xp int) *encounter.Combatant {
	return &encounter.Combatant{
		ID:        id,
		Name:      name,
		Kind:      encounter.KindMonster,
		MaxHP:     hp,
		CurrentHP: hp,
		AC:        13,
		XPValue:   xp,
	}
}

// blockingGenerator parks Narrate until released, so tests can hold the
// processing marker open.
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *blockingGenerator) Narrate(context.Context, narrator.TurnContext) (string, error) {
	g.mu.Lock()
	g.calls++
	if g.calls == 1 {
		close(g.started)
	}
	g.mu.Unlock()
	<-g.release
	return "The monster snarls.", nil
}

func (g *blockingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type panicGenerator struct{}

func (panicGenerator) Narrate(context.Context, narrator.TurnContext) (string, error) {
	panic("generator blew up")
}

func TestProcessPendingTurnYieldsOnPlayerTurn(t *testing.T) {
	gen := &narrator.StubGenerator{}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	h.startEncounter(t,
		playerCombatant(1, "Alice"),
		monsterCombatant("goblin-1", "Goblin", 7, 50),
	)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	assert.Zero(t, gen.Calls(), "no monster turn should run while a player is up")
	assert.Empty(t, drainEvents(t, h.sub))
	assert.False(t, h.orch.processing.held("tavern"))
}

func TestMonsterTurnsRunUntilPlayer(t *testing.T) {
	gen := &narrator.StubGenerator{Responses: []string{
		"The goblin jabs at the air.",
		"The wolf circles, hackles raised.",
	}}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	enc := h.startEncounter(t,
		monsterCombatant("goblin-1", "Goblin", 7, 50),
		monsterCombatant("wolf-1", "Wolf", 11, 50),
		playerCombatant(1, "Alice"),
	)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	assert.Equal(t, 2, gen.Calls())
	require.Equal(t,
		[]string{"dm", "turn_advanced", "dm", "turn_advanced"},
		eventTypes(drainEvents(t, h.sub)))
	assert.Equal(t, "Alice", enc.CurrentActor().Name)
	assert.False(t, h.orch.processing.held("tavern"))
}

func TestConcurrentTriggersCollapse(t *testing.T) {
	gen := newBlockingGenerator()
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	h.startEncounter(t,
		monsterCombatant("goblin-1", "Goblin", 7, 50),
		playerCombatant(1, "Alice"),
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.orch.ProcessPendingTurn(context.Background(), "tavern")
	}()

	select {
	case <-gen.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the generator")
	}

	assert.True(t, h.orch.processing.held("tavern"))

	// While the first run holds the marker, a second trigger is a no-op.
	h.orch.ProcessPendingTurn(context.Background(), "tavern")
	assert.Equal(t, 1, gen.callCount(), "overlapping trigger must not start a second turn")

	close(gen.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never finished")
	}

	assert.Equal(t, 1, gen.callCount())
	assert.False(t, h.orch.processing.held("tavern"))
}

func TestFallbackNarrativeOnGeneratorError(t *testing.T) {
	gen := &narrator.StubGenerator{Err: fmt.Errorf("upstream timeout")}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	h.startEncounter(t,
		monsterCombatant("goblin-1", "Grik", 7, 50),
		playerCombatant(1, "Alice"),
	)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	events := drainEvents(t, h.sub)
	require.Equal(t, []string{"dm", "turn_advanced"}, eventTypes(events))
	assert.Equal(t, "Grik attacks but the outcome is unclear!", events[0]["content"])
}

func TestPanicInTurnForceAdvances(t *testing.T) {
	h := newOrchestratorHarness(t, panicGenerator{}, testCharacter(1, "tavern", "Alice"))
	enc := h.startEncounter(t,
		monsterCombatant("goblin-1", "Goblin", 7, 50),
		playerCombatant(1, "Alice"),
	)

	require.NotPanics(t, func() {
		h.orch.ProcessPendingTurn(context.Background(), "tavern")
	})

	assert.Equal(t, "Alice", enc.CurrentActor().Name, "the failing actor must be advanced past")
	assert.False(t, h.orch.processing.held("tavern"), "marker must be released after the panic")
	require.Equal(t, []string{"turn_advanced"}, eventTypes(drainEvents(t, h.sub)))
}

func TestMalformedTagsDroppedSilently(t *testing.T) {
	gen := &narrator.StubGenerator{Responses: []string{
		"The goblin flails wildly. [XP: Alice | notanumber] [XP: Alice | 10]",
	}}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	h.startEncounter(t,
		monsterCombatant("goblin-1", "Goblin", 7, 50),
		playerCombatant(1, "Alice"),
	)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	assert.Equal(t, 10, h.store.get(t, 1).Experience, "only the well-formed tag applies")

	events := drainEvents(t, h.sub)
	require.Equal(t, []string{"dm", "xp_awarded", "turn_advanced"}, eventTypes(events))
	assert.Contains(t, events[0]["content"], "notanumber", "narrative is broadcast unmodified")
}

func TestMonsterTurnEffectsPrecedeAdvance(t *testing.T) {
	gen := &narrator.StubGenerator{Responses: []string{
		"The goblin rakes its claws across Alice's arm. [DAMAGE: Alice | 3]",
	}}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	enc := h.startEncounter(t,
		monsterCombatant("goblin-1", "Goblin", 7, 50),
		playerCombatant(1, "Alice"),
	)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	assert.Equal(t, 7, enc.Combatants[1].CurrentHP)
	assert.Equal(t, 7, h.store.get(t, 1).CurrentHP)

	events := drainEvents(t, h.sub)
	require.Equal(t, []string{"dm", "hp_changed", "turn_advanced"}, eventTypes(events))
	last := events[len(events)-1]
	assert.Equal(t, "Alice", last["actorName"])
	assert.Equal(t, true, last["isPlayer"])
}

func TestPartyWipeEndsCombat(t *testing.T) {
	gen := &narrator.StubGenerator{Responses: []string{
		"The ogre's club comes down with a sickening crunch. [DAMAGE: Alice | 10]",
	}}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	h.startEncounter(t,
		monsterCombatant("ogre-1", "Ogre", 30, 450),
		playerCombatant(1, "Alice"),
	)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	events := drainEvents(t, h.sub)
	require.Equal(t, []string{"dm", "hp_changed", "combat_ended"}, eventTypes(events))
	assert.Equal(t, "defeat", events[2]["outcome"])

	_, ok := h.engine.Get("tavern")
	assert.False(t, ok, "a finished encounter is removed from the engine")

	recs, err := h.arch.ListByRoom(context.Background(), "tavern")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "defeat", recs[0].Outcome)
	assert.Equal(t, []string{"Ogre"}, recs[0].Monsters)
}

func TestAutoTurnBoundYields(t *testing.T) {
	gen := &narrator.StubGenerator{Responses: []string{"The horde presses in."}}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))

	h.engine = encounter.NewEngine()
	exec := NewExecutor(h.store, h.hub, zap.NewNop())
	h.orch = NewOrchestrator(h.engine, h.rooms, exec, gen, h.hub, nil, nil, zap.NewNop(), 3)

	combatants := []*encounter.Combatant{playerCombatant(1, "Alice")}
	for i := 0; i < 10; i++ {
		combatants = append(combatants,
			monsterCombatant(fmt.Sprintf("rat-%d", i), fmt.Sprintf("Rat %d", i), 1, 10))
	}
	// Place the player last so the monsters act first.
	combatants = append(combatants[1:], combatants[0])
	_, err := h.engine.Start("tavern", combatants)
	require.NoError(t, err)

	h.orch.ProcessPendingTurn(context.Background(), "tavern")

	assert.Equal(t, 3, gen.Calls(), "the loop must stop at the configured bound")
	assert.False(t, h.orch.processing.held("tavern"))

	enc, ok := h.engine.Get("tavern")
	require.True(t, ok)
	assert.True(t, enc.Active, "the encounter survives hitting the bound")
}

func TestFinishEncounterArchivesFleeOutcome(t *testing.T) {
	gen := &narrator.StubGenerator{}
	h := newOrchestratorHarness(t, gen, testCharacter(1, "tavern", "Alice"))
	enc := h.startEncounter(t,
		playerCombatant(1, "Alice"),
		monsterCombatant("goblin-1", "Goblin", 7, 50),
	)

	enc.End(encounter.OutcomeFled)
	h.orch.FinishEncounter(context.Background(), "tavern", enc, string(encounter.OutcomeFled))

	events := drainEvents(t, h.sub)
	require.Equal(t, []string{"combat_ended"}, eventTypes(events))
	assert.Equal(t, "fled", events[0]["outcome"])

	recs, err := h.arch.ListByRoom(context.Background(), "tavern")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"Alice"}, recs[0].Participants)
}
