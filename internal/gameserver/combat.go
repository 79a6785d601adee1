package gameserver

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/broadcast"
	"github.com/emberfell/emberfell/internal/game/character"
	"github.com/emberfell/emberfell/internal/game/dice"
	"github.com/emberfell/emberfell/internal/game/directive"
	"github.com/emberfell/emberfell/internal/game/encounter"
	"github.com/emberfell/emberfell/internal/game/monster"
	"github.com/emberfell/emberfell/internal/game/room"
)

// proficiencyBonus is the flat bonus added to player attack rolls.
const proficiencyBonus = 2

// CombatService handles player-initiated combat actions: starting an
// encounter, resolving attacks, ending turns, and fleeing. Monster turns in
// between are driven by the Orchestrator.
//
// combatMu serialises player actions per service so that two requests cannot
// race on the same encounter's turn state.
type CombatService struct {
	encounters   *encounter.Engine
	rooms        *room.Manager
	monsters     *monster.Manager
	store        CharacterStore
	executor     *Executor
	orchestrator *Orchestrator
	hub          *broadcast.Hub
	dice         dice.Source
	logger       *zap.Logger

	combatMu sync.Mutex
}

// NewCombatService creates a CombatService.
//
// Precondition: all arguments must be non-nil.
func NewCombatService(
	encounters *encounter.Engine,
	rooms *room.Manager,
	monsters *monster.Manager,
	store CharacterStore,
	executor *Executor,
	orchestrator *Orchestrator,
	hub *broadcast.Hub,
	src dice.Source,
	logger *zap.Logger,
) *CombatService {
	return &CombatService{
		encounters:   encounters,
		rooms:        rooms,
		monsters:     monsters,
		store:        store,
		executor:     executor,
		orchestrator: orchestrator,
		hub:          hub,
		dice:         src,
		logger:       logger,
	}
}

// StartCombat rolls initiative for every room member plus the named monster
// templates and opens the encounter. If a monster wins initiative its turns
// run immediately.
//
// Precondition: roomCode must have at least one member; monsterIDs must name
// loaded templates; no encounter may be active in the room.
// Postcondition: On success the encounter is active and a turn_advanced
// event for the first actor has been broadcast.
func (s *CombatService) StartCombat(ctx context.Context, roomCode string, monsterIDs []string) (*encounter.Encounter, error) {
	if len(monsterIDs) == 0 {
		return nil, fmt.Errorf("combat needs at least one monster")
	}
	members := s.rooms.MembersInRoom(roomCode)
	if len(members) == 0 {
		return nil, fmt.Errorf("no players in room %q", roomCode)
	}

	s.combatMu.Lock()
	defer s.combatMu.Unlock()

	combatants := make([]*encounter.Combatant, 0, len(members)+len(monsterIDs))
	for _, m := range members {
		c, err := s.playerCombatant(ctx, m)
		if err != nil {
			return nil, err
		}
		combatants = append(combatants, c)
	}
	for _, id := range monsterIDs {
		c, err := s.monsters.Spawn(id)
		if err != nil {
			return nil, fmt.Errorf("spawning monster: %w", err)
		}
		combatants = append(combatants, c)
	}

	encounter.RollInitiative(combatants, s.dice)
	enc, err := s.encounters.Start(roomCode, combatants)
	if err != nil {
		return nil, err
	}

	opening := fmt.Sprintf("Steel rings out as combat begins! %s acts first.", enc.CurrentActor().Name)
	s.hub.Send(roomCode, broadcast.NewDMEvent(opening))
	s.rooms.AppendHistory(roomCode, opening)

	first := enc.CurrentActor()
	s.hub.Send(roomCode, broadcast.NewTurnAdvancedEvent(
		first.ID, first.Name, first.Kind == encounter.KindPlayer, enc.Round))

	s.orchestrator.ProcessPendingTurn(ctx, roomCode)
	return enc, nil
}

// ResolveAttack resolves uid's weapon attack against the named monster:
// d20 + strength modifier + proficiency against the target's armor class,
// with a natural 20 dealing double damage dice. On a kill the monster's XP
// value is split across the room's players. The turn then advances and any
// queued monster turns run.
//
// Precondition: it must be uid's turn in an active encounter; target must
// name a living monster in it.
// Postcondition: The encounter has advanced past uid's turn, or ended.
func (s *CombatService) ResolveAttack(ctx context.Context, roomCode, uid, targetName string) error {
	mem, ok := s.rooms.Get(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}

	s.combatMu.Lock()
	defer s.combatMu.Unlock()

	enc, ok := s.encounters.Get(roomCode)
	if !ok || !enc.Active {
		return fmt.Errorf("no active combat in room %q", roomCode)
	}
	actor := enc.CurrentActor()
	if actor == nil || actor.ID != formatID(mem.CharacterID) {
		return fmt.Errorf("it is not your turn")
	}

	target := enc.FindCombatantByName(targetName)
	if target == nil || target.Kind != encounter.KindMonster {
		return fmt.Errorf("you don't see %q here", targetName)
	}
	if target.IsDefeated() {
		return fmt.Errorf("%s is already down", target.Name)
	}

	strMod := statInt(actor.Stats, "str_mod")
	roll := dice.D20(s.dice)
	total := roll + strMod + proficiencyBonus

	var narrative string
	switch {
	case roll == 20:
		dmg := max(1, dice.Roll(8, s.dice)+dice.Roll(8, s.dice)+strMod)
		target.ApplyDamage(dmg)
		narrative = fmt.Sprintf("%s lands a devastating blow on %s for %d damage!", actor.Name, target.Name, dmg)
	case total >= target.AC:
		dmg := max(1, dice.Roll(8, s.dice)+strMod)
		target.ApplyDamage(dmg)
		narrative = fmt.Sprintf("%s strikes %s for %d damage.", actor.Name, target.Name, dmg)
	default:
		narrative = fmt.Sprintf("%s swings at %s but misses.", actor.Name, target.Name)
	}

	s.hub.Send(roomCode, broadcast.NewDMEvent(narrative))
	s.rooms.AppendHistory(roomCode, narrative)
	s.hub.Send(roomCode, broadcast.NewHPChangedEvent(
		target.Name, target.CurrentHP, target.MaxHP, target.IsDefeated()))

	if target.IsDefeated() && target.XPValue > 0 {
		participants := make([]string, 0, len(enc.Combatants))
		for _, c := range enc.Combatants {
			if c.Kind == encounter.KindPlayer && !c.IsDefeated() {
				participants = append(participants, c.Name)
			}
		}
		if len(participants) > 0 {
			s.executor.Apply(ctx, roomCode, enc, []directive.Directive{
				directive.MonsterDefeated{
					MonsterName:  target.Name,
					Amount:       target.XPValue,
					Participants: participants,
				},
			})
		}
	}

	s.advanceLocked(ctx, roomCode, enc)
	return nil
}

// EndTurn forfeits uid's turn and advances the encounter.
//
// Precondition: it must be uid's turn in an active encounter.
func (s *CombatService) EndTurn(ctx context.Context, roomCode, uid string) error {
	mem, ok := s.rooms.Get(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}

	s.combatMu.Lock()
	defer s.combatMu.Unlock()

	enc, ok := s.encounters.Get(roomCode)
	if !ok || !enc.Active {
		return fmt.Errorf("no active combat in room %q", roomCode)
	}
	actor := enc.CurrentActor()
	if actor == nil || actor.ID != formatID(mem.CharacterID) {
		return fmt.Errorf("it is not your turn")
	}

	s.advanceLocked(ctx, roomCode, enc)
	return nil
}

// Flee ends the encounter with the fled outcome.
//
// Precondition: an encounter must be active in roomCode; uid must be a room
// member.
func (s *CombatService) Flee(ctx context.Context, roomCode, uid string) error {
	mem, ok := s.rooms.Get(uid)
	if !ok {
		return fmt.Errorf("player %q not found", uid)
	}

	s.combatMu.Lock()
	defer s.combatMu.Unlock()

	enc, ok := s.encounters.Get(roomCode)
	if !ok || !enc.Active {
		return fmt.Errorf("no active combat in room %q", roomCode)
	}

	line := fmt.Sprintf("%s calls the retreat and the party scatters!", mem.CharName)
	s.hub.Send(roomCode, broadcast.NewDMEvent(line))
	s.rooms.AppendHistory(roomCode, line)

	enc.End(encounter.OutcomeFled)
	s.orchestrator.FinishEncounter(ctx, roomCode, enc, string(encounter.OutcomeFled))
	return nil
}

// Stop ends the encounter explicitly, outside the victory/defeat rules.
//
// Precondition: an encounter must be active in roomCode.
func (s *CombatService) Stop(ctx context.Context, roomCode string) error {
	s.combatMu.Lock()
	defer s.combatMu.Unlock()

	enc, ok := s.encounters.Get(roomCode)
	if !ok || !enc.Active {
		return fmt.Errorf("no active combat in room %q", roomCode)
	}

	enc.End(encounter.OutcomeStopped)
	s.orchestrator.FinishEncounter(ctx, roomCode, enc, string(encounter.OutcomeStopped))
	return nil
}

// advanceLocked moves the encounter to the next actor, broadcasting the
// transition, then hands control to the orchestrator for any monster turns.
func (s *CombatService) advanceLocked(ctx context.Context, roomCode string, enc *encounter.Encounter) {
	adv := enc.Advance()
	if adv.Ended {
		s.orchestrator.FinishEncounter(ctx, roomCode, enc, string(adv.Outcome))
		return
	}
	s.hub.Send(roomCode, broadcast.NewTurnAdvancedEvent(
		adv.Actor.ID, adv.Actor.Name, adv.Actor.Kind == encounter.KindPlayer, adv.Round))

	s.orchestrator.ProcessPendingTurn(ctx, roomCode)
}

// playerCombatant builds a combatant from a member's persisted character.
func (s *CombatService) playerCombatant(ctx context.Context, m *room.Member) (*encounter.Combatant, error) {
	ch, err := s.store.GetByID(ctx, m.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("loading character for %q: %w", m.CharName, err)
	}
	if ch.IsDefeated() {
		return nil, fmt.Errorf("%s is in no state to fight", ch.Name)
	}

	return &encounter.Combatant{
		ID:        formatID(ch.ID),
		Name:      ch.Name,
		Kind:      encounter.KindPlayer,
		MaxHP:     ch.MaxHP,
		CurrentHP: ch.CurrentHP,
		AC:        ch.AC,
		DexMod:    character.Modifier(ch.Abilities.Dexterity),
		Stats: map[string]any{
			"class":   ch.Class,
			"level":   ch.Level,
			"str_mod": character.Modifier(ch.Abilities.Strength),
		},
	}, nil
}

// statInt reads an int out of an opaque stat block, defaulting to zero.
func statInt(stats map[string]any, key string) int {
	if stats == nil {
		return 0
	}
	if v, ok := stats[key].(int); ok {
		return v
	}
	return 0
}
