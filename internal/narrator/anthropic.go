package narrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/emberfell/emberfell/internal/config"
)

const systemPrompt = `You are the dungeon master for a fantasy tabletop game.
Narrate the acting monster's turn in 2-4 vivid sentences, present tense,
second person toward the party. When the turn has mechanical consequences,
append directive tags on their own line, for example:
[XP: Alice | 50]
[MONSTER_DEFEATED: Goblin | XP: 100 | participants: Alice,Bob]
[STATUS: Alice | poisoned | 3]
[GOLD: Alice | 10]
Only emit tags for effects that actually happen in your narration.`

// AnthropicGenerator narrates monster turns via the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

var _ Generator = (*AnthropicGenerator)(nil)

// NewAnthropicGenerator builds a generator from config. The API key is read
// from the environment variable named by cfg.APIKeyEnv.
//
// Precondition: cfg must be validated.
// Postcondition: Returns an error if the key variable is unset or empty.
func NewAnthropicGenerator(cfg config.NarratorConfig, logger *zap.Logger) (*AnthropicGenerator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("narrator: environment variable %s is not set", cfg.APIKeyEnv)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicGenerator{
		client:    anthropic.NewClient(option.WithAPIKey(key)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Narrate implements Generator.
func (g *AnthropicGenerator) Narrate(ctx context.Context, tc TurnContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(tc))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrator: messages request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("narrator: model returned no text")
	}

	g.logger.Debug("narrated turn",
		zap.String("room", tc.RoomCode),
		zap.String("actor", tc.ActorName),
		zap.Int("round", tc.Round))
	return text, nil
}

// buildPrompt renders the turn context as the user message.
func buildPrompt(tc TurnContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Round %d. It is %s's turn.\n\nCombatants:\n", tc.Round, tc.ActorName)
	for _, c := range tc.Combatants {
		fmt.Fprintf(&sb, "- %s (%s) %d/%d HP\n", c.Name, c.Kind, c.CurrentHP, c.MaxHP)
	}
	if len(tc.History) > 0 {
		sb.WriteString("\nRecent events:\n")
		for _, h := range tc.History {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
	}
	sb.WriteString("\nNarrate this turn.")
	return sb.String()
}
