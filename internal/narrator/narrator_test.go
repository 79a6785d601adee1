package narrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfell/emberfell/internal/config"
)

func TestBuildPromptIncludesCombatantsAndHistory(t *testing.T) {
	tc := TurnContext{
		RoomCode:  "room_a",
		ActorName: "Goblin",
		Round:     2,
		Combatants: []Combatant{
			{Name: "Alice", Kind: "player", CurrentHP: 8, MaxHP: 12},
			{Name: "Goblin", Kind: "monster", CurrentHP: 3, MaxHP: 7},
		},
		History: []string{"Alice strikes the goblin."},
	}

	prompt := buildPrompt(tc)
	assert.Contains(t, prompt, "Round 2")
	assert.Contains(t, prompt, "Goblin's turn")
	assert.Contains(t, prompt, "Alice (player) 8/12 HP")
	assert.Contains(t, prompt, "Alice strikes the goblin.")
}

func TestBuildPromptOmitsEmptyHistory(t *testing.T) {
	prompt := buildPrompt(TurnContext{ActorName: "Goblin", Round: 1})
	assert.NotContains(t, prompt, "Recent events")
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	t.Setenv("EMBERFELL_TEST_MISSING_KEY", "")
	_, err := NewAnthropicGenerator(config.NarratorConfig{
		APIKeyEnv: "EMBERFELL_TEST_MISSING_KEY",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 512,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBERFELL_TEST_MISSING_KEY")
}

func TestStubGeneratorSequences(t *testing.T) {
	s := &StubGenerator{Responses: []string{"first", "second"}}

	got, err := s.Narrate(context.Background(), TurnContext{})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, _ = s.Narrate(context.Background(), TurnContext{})
	assert.Equal(t, "second", got)

	got, _ = s.Narrate(context.Background(), TurnContext{})
	assert.Equal(t, "second", got, "repeats last response once exhausted")
	assert.Equal(t, 3, s.Calls())
}

func TestStubGeneratorErr(t *testing.T) {
	s := &StubGenerator{Err: errors.New("boom")}
	_, err := s.Narrate(context.Background(), TurnContext{})
	assert.Error(t, err)
}
