package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLevelForExperience(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{299, 1},
		{300, 2},
		{899, 2},
		{900, 3},
		{6500, 5},
		{355000, 20},
		{9999999, 20},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForExperience(tc.xp), "xp=%d", tc.xp)
	}
}

func TestMaxLevelMatchesThresholdTable(t *testing.T) {
	assert.Equal(t, len(levelThresholds), MaxLevel)
	assert.Equal(t, MaxLevel, LevelForExperience(levelThresholds[MaxLevel-1]))
}

func TestApplyExperienceLevelsUp(t *testing.T) {
	c := &Character{Name: "Alice", Level: 1, Experience: 250}
	level, leveled := c.ApplyExperience(100)
	assert.True(t, leveled)
	assert.Equal(t, 2, level)
	assert.Equal(t, 350, c.Experience)
}

func TestApplyExperienceNoLevelChange(t *testing.T) {
	c := &Character{Name: "Alice", Level: 2, Experience: 400}
	level, leveled := c.ApplyExperience(50)
	assert.False(t, leveled)
	assert.Equal(t, 2, level)
}

func TestApplyDamageFloorsAtZero(t *testing.T) {
	c := &Character{MaxHP: 10, CurrentHP: 4}
	c.ApplyDamage(9)
	assert.Equal(t, 0, c.CurrentHP)
	assert.True(t, c.IsDefeated())
}

func TestHealCapsAtMax(t *testing.T) {
	c := &Character{MaxHP: 10, CurrentHP: 4}
	c.Heal(100)
	assert.Equal(t, 10, c.CurrentHP)
}

func TestModifierFloorDivision(t *testing.T) {
	assert.Equal(t, -1, Modifier(9))
	assert.Equal(t, 0, Modifier(10))
	assert.Equal(t, 0, Modifier(11))
	assert.Equal(t, 2, Modifier(14))
	assert.Equal(t, -3, Modifier(5))
}

// Level is monotone in experience and always within [1, MaxLevel].
func TestPropertyLevelMonotone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 400000).Draw(t, "a")
		b := rapid.IntRange(0, 400000).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		la, lb := LevelForExperience(a), LevelForExperience(b)
		if la > lb {
			t.Fatalf("level not monotone: xp %d -> %d but level %d -> %d", a, b, la, lb)
		}
		if la < 1 || lb > MaxLevel {
			t.Fatalf("level out of range: %d, %d", la, lb)
		}
	})
}
