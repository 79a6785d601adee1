package gameserver

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/broadcast"
	"github.com/emberfell/emberfell/internal/game/directive"
	"github.com/emberfell/emberfell/internal/game/encounter"
)

// Executor applies parsed directives against persistent game state and the
// active encounter, emitting one broadcast event per effect.
//
// Every mutation is paired with a broadcast so clients can reconstruct state
// from the event stream alone. Directive applications are independent: a
// lookup or persistence failure for one directive is logged and the rest of
// the batch still runs.
type Executor struct {
	store  CharacterStore
	hub    *broadcast.Hub
	logger *zap.Logger
}

// NewExecutor creates an Executor.
//
// Precondition: store, hub, and logger must be non-nil.
func NewExecutor(store CharacterStore, hub *broadcast.Hub, logger *zap.Logger) *Executor {
	return &Executor{store: store, hub: hub, logger: logger}
}

// Apply runs each directive in order against the room's state. enc may be
// nil when no encounter is active; directives that target combatants are
// then no-ops.
//
// Postcondition: Apply never returns an error; per-directive failures are
// logged and skipped.
func (e *Executor) Apply(ctx context.Context, roomCode string, enc *encounter.Encounter, directives []directive.Directive) {
	for _, d := range directives {
		switch d := d.(type) {
		case directive.ExperienceAward:
			e.applyExperience(ctx, roomCode, d.TargetName, d.Amount)
		case directive.MonsterDefeated:
			e.applyMonsterDefeated(ctx, roomCode, d)
		case directive.StatusApplied:
			e.applyStatus(roomCode, enc, d)
		case directive.GoldAward:
			e.applyGold(ctx, roomCode, d)
		case directive.DamageDealt:
			e.applyDamage(ctx, roomCode, enc, d)
		case directive.ReputationChange:
			e.applyReputation(ctx, roomCode, d)
		default:
			e.logger.Warn("unknown directive kind",
				zap.String("room", roomCode),
				zap.String("kind", fmt.Sprintf("%T", d)))
		}
	}
}

// applyExperience grants XP to one character, recomputing level, and
// broadcasts the award. Returns the applied award, or nil when the target
// could not be resolved or persisted.
func (e *Executor) applyExperience(ctx context.Context, roomCode, targetName string, amount int) *broadcast.XPAward {
	ch, err := e.store.FindByName(ctx, roomCode, targetName)
	if err != nil {
		e.logger.Info("xp award target not found",
			zap.String("room", roomCode),
			zap.String("target", targetName),
			zap.Error(err))
		return nil
	}

	newLevel, leveled := ch.ApplyExperience(amount)
	if err := e.store.SaveProgress(ctx, ch.ID, ch.Experience, newLevel, ch.Gold, ch.Reputation); err != nil {
		e.logger.Error("persisting xp award",
			zap.String("room", roomCode),
			zap.String("target", targetName),
			zap.Int64("character_id", ch.ID),
			zap.Error(err))
		return nil
	}

	e.hub.Send(roomCode, broadcast.NewXPAwardedEvent(
		formatID(ch.ID), ch.Name, amount, ch.Experience, newLevel, leveled))
	return &broadcast.XPAward{TargetID: formatID(ch.ID), TargetName: ch.Name, Amount: amount}
}

// applyMonsterDefeated splits the kill XP across participants and broadcasts
// the defeat. The split is deterministic: integer division with the
// remainder granted one point at a time to the earliest-listed participants,
// so 101 over [Alice, Bob] is always {Alice: 51, Bob: 50}.
func (e *Executor) applyMonsterDefeated(ctx context.Context, roomCode string, d directive.MonsterDefeated) {
	shares := SplitEvenly(d.Amount, len(d.Participants))

	awards := make([]broadcast.XPAward, 0, len(d.Participants))
	for i, name := range d.Participants {
		if award := e.applyExperience(ctx, roomCode, name, shares[i]); award != nil {
			awards = append(awards, *award)
		}
	}

	e.hub.Send(roomCode, broadcast.NewMonsterDefeatedEvent(d.MonsterName, awards))
}

// applyStatus places a timed effect on a combatant in the active encounter.
func (e *Executor) applyStatus(roomCode string, enc *encounter.Encounter, d directive.StatusApplied) {
	if enc == nil {
		e.logger.Info("status directive outside combat",
			zap.String("room", roomCode),
			zap.String("target", d.TargetName))
		return
	}
	c := enc.FindCombatantByName(d.TargetName)
	if c == nil {
		e.logger.Info("status target not in encounter",
			zap.String("room", roomCode),
			zap.String("target", d.TargetName))
		return
	}

	c.AddStatus(d.Effect, d.Rounds)
	e.hub.Send(roomCode, broadcast.NewStatusAppliedEvent(c.ID, c.Name, d.Effect, d.Rounds))
}

func (e *Executor) applyGold(ctx context.Context, roomCode string, d directive.GoldAward) {
	ch, err := e.store.FindByName(ctx, roomCode, d.TargetName)
	if err != nil {
		e.logger.Info("gold award target not found",
			zap.String("room", roomCode),
			zap.String("target", d.TargetName),
			zap.Error(err))
		return
	}

	newGold := ch.Gold + d.Amount
	if err := e.store.SaveProgress(ctx, ch.ID, ch.Experience, ch.Level, newGold, ch.Reputation); err != nil {
		e.logger.Error("persisting gold award",
			zap.String("room", roomCode),
			zap.Int64("character_id", ch.ID),
			zap.Error(err))
		return
	}

	e.hub.Send(roomCode, broadcast.NewGoldAwardedEvent(formatID(ch.ID), ch.Name, d.Amount, newGold))
}

// applyDamage reduces a combatant's HP, persisting the change for players.
func (e *Executor) applyDamage(ctx context.Context, roomCode string, enc *encounter.Encounter, d directive.DamageDealt) {
	if enc == nil {
		e.logger.Info("damage directive outside combat",
			zap.String("room", roomCode),
			zap.String("target", d.TargetName))
		return
	}
	c := enc.FindCombatantByName(d.TargetName)
	if c == nil {
		e.logger.Info("damage target not in encounter",
			zap.String("room", roomCode),
			zap.String("target", d.TargetName))
		return
	}

	c.ApplyDamage(d.Amount)
	if c.Kind == encounter.KindPlayer {
		if id, err := strconv.ParseInt(c.ID, 10, 64); err == nil {
			if err := e.store.SaveHP(ctx, id, c.CurrentHP); err != nil {
				e.logger.Error("persisting hp change",
					zap.String("room", roomCode),
					zap.String("target", c.Name),
					zap.Error(err))
			}
		}
	}

	e.hub.Send(roomCode, broadcast.NewHPChangedEvent(c.Name, c.CurrentHP, c.MaxHP, c.IsDefeated()))
}

func (e *Executor) applyReputation(ctx context.Context, roomCode string, d directive.ReputationChange) {
	ch, err := e.store.FindByName(ctx, roomCode, d.TargetName)
	if err != nil {
		e.logger.Info("reputation target not found",
			zap.String("room", roomCode),
			zap.String("target", d.TargetName),
			zap.Error(err))
		return
	}

	newRep := ch.Reputation + d.Amount
	if err := e.store.SaveProgress(ctx, ch.ID, ch.Experience, ch.Level, ch.Gold, newRep); err != nil {
		e.logger.Error("persisting reputation change",
			zap.String("room", roomCode),
			zap.Int64("character_id", ch.ID),
			zap.Error(err))
		return
	}

	e.hub.Send(roomCode, broadcast.NewReputationChangedEvent(formatID(ch.ID), ch.Name, d.Amount, newRep))
}

// SplitEvenly divides amount across n recipients: integer division with the
// remainder distributed one point each to the earliest positions.
//
// Precondition: amount >= 0 and n >= 1.
// Postcondition: The returned shares sum to amount and are non-increasing.
func SplitEvenly(amount, n int) []int {
	shares := make([]int, n)
	base := amount / n
	rem := amount % n
	for i := range shares {
		shares[i] = base
		if i < rem {
			shares[i]++
		}
	}
	return shares
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
