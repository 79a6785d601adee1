package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscriber_Push(t *testing.T) {
	s := NewSubscriber("u1", 4)
	require.NoError(t, s.Push([]byte("hello")))

	data := <-s.Events()
	assert.Equal(t, []byte("hello"), data)
}

func TestSubscriber_PushClosed(t *testing.T) {
	s := NewSubscriber("u1", 4)
	require.NoError(t, s.Close())
	assert.Error(t, s.Push([]byte("fail")))
}

func TestSubscriber_PushFull(t *testing.T) {
	s := NewSubscriber("u1", 1)
	require.NoError(t, s.Push([]byte("first")))
	err := s.Push([]byte("overflow"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestSubscriber_CloseIdempotent(t *testing.T) {
	s := NewSubscriber("u1", 4)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestHub_SendReachesRoomSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop(), 8)
	alice := h.Subscribe("room_a", "u1")
	bob := h.Subscribe("room_a", "u2")
	carol := h.Subscribe("room_b", "u3")

	h.Send("room_a", NewDMEvent("The goblin snarls."))

	var got DMEvent
	require.NoError(t, json.Unmarshal(<-alice.Events(), &got))
	assert.Equal(t, "dm", got.Type)
	assert.Equal(t, "The goblin snarls.", got.Message)

	require.NoError(t, json.Unmarshal(<-bob.Events(), &got))
	assert.Equal(t, "The goblin snarls.", got.Message)

	select {
	case data := <-carol.Events():
		t.Fatalf("room_b subscriber received unexpected event: %s", data)
	default:
	}
}

func TestHub_SendToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub(zap.NewNop(), 8)
	h.Send("nowhere", NewCombatEndedEvent("victory", 3))
}

func TestHub_SendNeverBlocksOnFullSubscriber(t *testing.T) {
	h := NewHub(zap.NewNop(), 1)
	sub := h.Subscribe("room_a", "u1")

	h.Send("room_a", NewDMEvent("one"))
	h.Send("room_a", NewDMEvent("two")) // dropped, must not block

	var got DMEvent
	require.NoError(t, json.Unmarshal(<-sub.Events(), &got))
	assert.Equal(t, "one", got.Message)
}

func TestHub_ResubscribeReplacesPrior(t *testing.T) {
	h := NewHub(zap.NewNop(), 4)
	first := h.Subscribe("room_a", "u1")
	second := h.Subscribe("room_a", "u1")

	assert.Equal(t, 1, h.SubscriberCount("room_a"))
	assert.Error(t, first.Push([]byte("stale")))

	h.Send("room_a", NewDMEvent("fresh"))
	var got DMEvent
	require.NoError(t, json.Unmarshal(<-second.Events(), &got))
	assert.Equal(t, "fresh", got.Message)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(zap.NewNop(), 4)
	sub := h.Subscribe("room_a", "u1")

	h.Unsubscribe("room_a", "u1")
	assert.Equal(t, 0, h.SubscriberCount("room_a"))
	assert.Error(t, sub.Push([]byte("gone")))

	h.Unsubscribe("room_a", "u1") // no-op
}

func TestEventWireTags(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{NewDMEvent("m"), "dm"},
		{NewXPAwardedEvent("1", "Alice", 50, 150, 1, false), "xp_awarded"},
		{NewMonsterDefeatedEvent("Goblin", nil), "monster_defeated"},
		{NewTurnAdvancedEvent("1", "Alice", true, 2), "turn_advanced"},
		{NewCombatEndedEvent("victory", 4), "combat_ended"},
		{NewStatusAppliedEvent("2", "Bob", "poisoned", 3), "status_applied"},
		{NewGoldAwardedEvent("1", "Alice", 10, 25), "gold_awarded"},
		{NewHPChangedEvent("Goblin", 2, 7, false), "hp_changed"},
		{NewReputationChangedEvent("1", "Alice", -2, 3), "reputation_changed"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ev.EventType())

			data, err := json.Marshal(tc.ev)
			require.NoError(t, err)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tc.want, decoded["type"])
		})
	}
}
