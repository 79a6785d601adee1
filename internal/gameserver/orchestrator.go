package gameserver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/broadcast"
	"github.com/emberfell/emberfell/internal/game/directive"
	"github.com/emberfell/emberfell/internal/game/encounter"
	"github.com/emberfell/emberfell/internal/game/room"
	"github.com/emberfell/emberfell/internal/narrator"
	"github.com/emberfell/emberfell/internal/scripting"
	"github.com/emberfell/emberfell/internal/storage/archive"
)

// DefaultMaxAutoTurns bounds consecutive automated monster turns per
// ProcessPendingTurn call when no configured limit is provided.
const DefaultMaxAutoTurns = 20

// Orchestrator drives monster turns to completion without player input.
//
// For each automated turn it invokes the narrative generator, broadcasts the
// narrative, applies any directives embedded in it, and advances the
// encounter. The loop continues while the current actor is a monster; it
// yields when a player's turn begins or combat ends.
//
// The contract is "ProcessPendingTurn always returns", not "always
// succeeds": generator failures fall back to a stock narrative, directive
// failures are isolated inside the Executor, and any panic in a single turn
// is confined to that turn so the encounter still advances past the failing
// actor.
type Orchestrator struct {
	encounters   *encounter.Engine
	rooms        *room.Manager
	executor     *Executor
	generator    narrator.Generator
	hub          *broadcast.Hub
	scripts      *scripting.Manager
	archive      archive.Archive
	logger       *zap.Logger
	maxAutoTurns int

	processing *processingSet
}

// NewOrchestrator creates an Orchestrator.
//
// Precondition: encounters, rooms, executor, generator, hub, and logger must
// be non-nil; scripts and arch may be nil (the combat-end hook and archival
// are then skipped). maxAutoTurns <= 0 uses DefaultMaxAutoTurns.
func NewOrchestrator(
	encounters *encounter.Engine,
	rooms *room.Manager,
	executor *Executor,
	generator narrator.Generator,
	hub *broadcast.Hub,
	scripts *scripting.Manager,
	arch archive.Archive,
	logger *zap.Logger,
	maxAutoTurns int,
) *Orchestrator {
	if maxAutoTurns <= 0 {
		maxAutoTurns = DefaultMaxAutoTurns
	}
	return &Orchestrator{
		encounters:   encounters,
		rooms:        rooms,
		executor:     executor,
		generator:    generator,
		hub:          hub,
		scripts:      scripts,
		archive:      arch,
		logger:       logger,
		maxAutoTurns: maxAutoTurns,
		processing:   newProcessingSet(),
	}
}

// ProcessPendingTurn advances the room's encounter through consecutive
// monster turns until a player is up, combat ends, or the auto-turn bound is
// reached. If another run already holds the room's processing marker the
// call is a no-op; the overlapping trigger collapses into the in-flight run.
//
// Postcondition: the processing marker for roomCode is clear when this
// method returns, on every path.
func (o *Orchestrator) ProcessPendingTurn(ctx context.Context, roomCode string) {
	if !o.processing.tryAcquire(roomCode) {
		return
	}
	defer o.processing.release(roomCode)

	for turns := 0; turns < o.maxAutoTurns; turns++ {
		enc, ok := o.encounters.Get(roomCode)
		if !ok || !enc.Active {
			return
		}

		actor := enc.CurrentActor()
		if actor == nil {
			o.logger.Warn("encounter has no current actor",
				zap.String("room", roomCode),
				zap.Int("turn_index", enc.TurnIndex))
			return
		}
		if actor.Kind == encounter.KindPlayer {
			// Control yields to external input.
			return
		}

		o.runMonsterTurn(ctx, roomCode, enc, actor)

		adv := enc.Advance()
		if adv.Ended {
			o.FinishEncounter(ctx, roomCode, enc, string(adv.Outcome))
			return
		}
		o.hub.Send(roomCode, broadcast.NewTurnAdvancedEvent(
			adv.Actor.ID, adv.Actor.Name, adv.Actor.Kind == encounter.KindPlayer, adv.Round))
	}

	o.logger.Warn("auto-turn bound reached, yielding",
		zap.String("room", roomCode),
		zap.Int("max_auto_turns", o.maxAutoTurns))
}

// runMonsterTurn narrates one monster turn and applies its directives. Any
// panic is recovered here so a single bad turn cannot stall the encounter;
// the caller advances the turn regardless.
func (o *Orchestrator) runMonsterTurn(ctx context.Context, roomCode string, enc *encounter.Encounter, actor *encounter.Combatant) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("monster turn panicked, force-advancing",
				zap.String("room", roomCode),
				zap.String("actor", actor.Name),
				zap.Any("panic", r))
		}
	}()

	text, err := o.generator.Narrate(ctx, o.buildTurnContext(roomCode, enc, actor))
	if err != nil {
		// Generator failures are cosmetic: the turn still resolves.
		o.logger.Warn("narrative generation failed, using fallback",
			zap.String("room", roomCode),
			zap.String("actor", actor.Name),
			zap.Error(err))
		text = fmt.Sprintf("%s attacks but the outcome is unclear!", actor.Name)
	}

	o.hub.Send(roomCode, broadcast.NewDMEvent(text))
	o.rooms.AppendHistory(roomCode, text)

	res := directive.Parse(text)
	if res.Malformed > 0 {
		o.logger.Info("dropped malformed directive tags",
			zap.String("room", roomCode),
			zap.Int("malformed", res.Malformed))
	}
	o.executor.Apply(ctx, roomCode, enc, res.Directives)
}

func (o *Orchestrator) buildTurnContext(roomCode string, enc *encounter.Encounter, actor *encounter.Combatant) narrator.TurnContext {
	combatants := make([]narrator.Combatant, 0, len(enc.Combatants))
	for _, c := range enc.Combatants {
		kind := "player"
		if c.Kind == encounter.KindMonster {
			kind = "monster"
		}
		combatants = append(combatants, narrator.Combatant{
			Name:      c.Name,
			Kind:      kind,
			CurrentHP: c.CurrentHP,
			MaxHP:     c.MaxHP,
		})
	}
	return narrator.TurnContext{
		RoomCode:   roomCode,
		ActorName:  actor.Name,
		Round:      enc.Round,
		Combatants: combatants,
		History:    o.rooms.History(roomCode),
	}
}

// FinishEncounter runs the end-of-combat sequence: the combat_ended
// broadcast, the room script's on_combat_end hook (bonus XP and epilogue),
// archival of the encounter summary, and removal from the engine.
//
// Precondition: enc must be inactive with its Outcome set.
func (o *Orchestrator) FinishEncounter(ctx context.Context, roomCode string, enc *encounter.Encounter, outcome string) {
	o.hub.Send(roomCode, broadcast.NewCombatEndedEvent(outcome, enc.Round))

	if o.scripts != nil {
		res := o.scripts.OnCombatEnd(roomCode, outcome, enc.Round)
		if res.BonusXP > 0 {
			for _, c := range enc.Combatants {
				if c.Kind == encounter.KindPlayer && !c.IsDefeated() {
					o.executor.Apply(ctx, roomCode, enc, []directive.Directive{
						directive.ExperienceAward{TargetName: c.Name, Amount: res.BonusXP},
					})
				}
			}
		}
		if res.Epilogue != "" {
			o.hub.Send(roomCode, broadcast.NewDMEvent(res.Epilogue))
			o.rooms.AppendHistory(roomCode, res.Epilogue)
		}
	}

	if o.archive != nil {
		rec := buildArchiveRecord(roomCode, enc, outcome)
		if err := o.archive.Save(ctx, rec); err != nil {
			o.logger.Error("archiving encounter",
				zap.String("room", roomCode),
				zap.String("encounter_id", enc.ID),
				zap.Error(err))
		}
	}

	o.encounters.Remove(roomCode)
}

func buildArchiveRecord(roomCode string, enc *encounter.Encounter, outcome string) *archive.Record {
	rec := &archive.Record{
		ID:        enc.ID,
		RoomCode:  roomCode,
		Outcome:   outcome,
		Rounds:    enc.Round,
		StartedAt: enc.StartedAt,
		EndedAt:   time.Now(),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	for _, c := range enc.Combatants {
		if c.Kind == encounter.KindMonster {
			rec.Monsters = append(rec.Monsters, c.Name)
			rec.XPAwarded += c.XPValue
		} else {
			rec.Participants = append(rec.Participants, c.Name)
		}
	}
	return rec
}
