// Package broadcast defines the event types pushed to connected clients and
// the per-room hub that fans them out.
package broadcast

// Event is the sealed set of payloads pushed to room subscribers. Each
// implementation reports its wire type tag via EventType.
type Event interface {
	EventType() string
}

// DMEvent carries a narrative message from the dungeon master.
type DMEvent struct {
	Type    string `json:"type"`
	Message string `json:"content"`
}

// NewDMEvent builds a DMEvent with its type tag set.
func NewDMEvent(message string) DMEvent {
	return DMEvent{Type: "dm", Message: message}
}

func (e DMEvent) EventType() string { return e.Type }

// XPAwardedEvent reports an experience grant to a single character.
type XPAwardedEvent struct {
	Type       string `json:"type"`
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
	Amount     int    `json:"amount"`
	NewXP      int    `json:"newXp"`
	NewLevel   int    `json:"newLevel"`
	LeveledUp  bool   `json:"leveledUp"`
}

// NewXPAwardedEvent builds an XPAwardedEvent with its type tag set.
func NewXPAwardedEvent(targetID, targetName string, amount, newXP, newLevel int, leveledUp bool) XPAwardedEvent {
	return XPAwardedEvent{
		Type:       "xp_awarded",
		TargetID:   targetID,
		TargetName: targetName,
		Amount:     amount,
		NewXP:      newXP,
		NewLevel:   newLevel,
		LeveledUp:  leveledUp,
	}
}

func (e XPAwardedEvent) EventType() string { return e.Type }

// XPAward is one participant's share of a monster kill.
type XPAward struct {
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
	Amount     int    `json:"amount"`
}

// MonsterDefeatedEvent reports a monster kill and the XP split among
// participants.
type MonsterDefeatedEvent struct {
	Type    string    `json:"type"`
	Monster string    `json:"monster"`
	Awards  []XPAward `json:"awards"`
}

// NewMonsterDefeatedEvent builds a MonsterDefeatedEvent with its type tag set.
func NewMonsterDefeatedEvent(monster string, awards []XPAward) MonsterDefeatedEvent {
	return MonsterDefeatedEvent{Type: "monster_defeated", Monster: monster, Awards: awards}
}

func (e MonsterDefeatedEvent) EventType() string { return e.Type }

// TurnAdvancedEvent announces whose turn it now is.
type TurnAdvancedEvent struct {
	Type      string `json:"type"`
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName"`
	IsPlayer  bool   `json:"isPlayer"`
	Round     int    `json:"round"`
}

// NewTurnAdvancedEvent builds a TurnAdvancedEvent with its type tag set.
func NewTurnAdvancedEvent(actorID, actorName string, isPlayer bool, round int) TurnAdvancedEvent {
	return TurnAdvancedEvent{Type: "turn_advanced", ActorID: actorID, ActorName: actorName, IsPlayer: isPlayer, Round: round}
}

func (e TurnAdvancedEvent) EventType() string { return e.Type }

// CombatEndedEvent announces that the encounter is over.
type CombatEndedEvent struct {
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
	Rounds  int    `json:"rounds"`
}

// NewCombatEndedEvent builds a CombatEndedEvent with its type tag set.
func NewCombatEndedEvent(outcome string, rounds int) CombatEndedEvent {
	return CombatEndedEvent{Type: "combat_ended", Outcome: outcome, Rounds: rounds}
}

func (e CombatEndedEvent) EventType() string { return e.Type }

// StatusAppliedEvent reports a condition placed on a combatant. TargetID is
// the combatant's encounter ID, which for players is their character ID.
type StatusAppliedEvent struct {
	Type       string `json:"type"`
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
	Effect     string `json:"effect"`
	Rounds     int    `json:"rounds"`
}

// NewStatusAppliedEvent builds a StatusAppliedEvent with its type tag set.
func NewStatusAppliedEvent(targetID, targetName, effect string, rounds int) StatusAppliedEvent {
	return StatusAppliedEvent{Type: "status_applied", TargetID: targetID, TargetName: targetName, Effect: effect, Rounds: rounds}
}

func (e StatusAppliedEvent) EventType() string { return e.Type }

// HPChangedEvent reports a combatant's hit points after taking damage or
// healing.
type HPChangedEvent struct {
	Type       string `json:"type"`
	TargetName string `json:"targetName"`
	CurrentHP  int    `json:"currentHp"`
	MaxHP      int    `json:"maxHp"`
	Defeated   bool   `json:"defeated"`
}

// NewHPChangedEvent builds an HPChangedEvent with its type tag set.
func NewHPChangedEvent(targetName string, currentHP, maxHP int, defeated bool) HPChangedEvent {
	return HPChangedEvent{Type: "hp_changed", TargetName: targetName, CurrentHP: currentHP, MaxHP: maxHP, Defeated: defeated}
}

func (e HPChangedEvent) EventType() string { return e.Type }

// ReputationChangedEvent reports a character's reputation adjustment.
type ReputationChangedEvent struct {
	Type          string `json:"type"`
	TargetID      string `json:"targetId"`
	TargetName    string `json:"targetName"`
	Amount        int    `json:"amount"`
	NewReputation int    `json:"newReputation"`
}

// NewReputationChangedEvent builds a ReputationChangedEvent with its type tag set.
func NewReputationChangedEvent(targetID, targetName string, amount, newReputation int) ReputationChangedEvent {
	return ReputationChangedEvent{Type: "reputation_changed", TargetID: targetID, TargetName: targetName, Amount: amount, NewReputation: newReputation}
}

func (e ReputationChangedEvent) EventType() string { return e.Type }

// GoldAwardedEvent reports a gold grant to a single character.
type GoldAwardedEvent struct {
	Type       string `json:"type"`
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
	Amount     int    `json:"amount"`
	NewGold    int    `json:"newGold"`
}

// NewGoldAwardedEvent builds a GoldAwardedEvent with its type tag set.
func NewGoldAwardedEvent(targetID, targetName string, amount, newGold int) GoldAwardedEvent {
	return GoldAwardedEvent{Type: "gold_awarded", TargetID: targetID, TargetName: targetName, Amount: amount, NewGold: newGold}
}

func (e GoldAwardedEvent) EventType() string { return e.Type }
