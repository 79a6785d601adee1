package character

// levelThresholds[i] is the total experience required to reach level i+1.
// Index 0 (level 1) is always 0. The table is cumulative, so a character's
// level is the highest index whose threshold their total XP meets.
var levelThresholds = [20]int{
	0,      // 1
	300,    // 2
	900,    // 3
	2700,   // 4
	6500,   // 5
	14000,  // 6
	23000,  // 7
	34000,  // 8
	48000,  // 9
	64000,  // 10
	85000,  // 11
	100000, // 12
	120000, // 13
	140000, // 14
	165000, // 15
	195000, // 16
	225000, // 17
	265000, // 18
	305000, // 19
	355000, // 20
}

// MaxLevel is the highest attainable character level.
const MaxLevel = len(levelThresholds)

// LevelForExperience returns the level corresponding to a total XP value.
//
// Precondition: xp must be >= 0.
// Postcondition: Returns a level in [1, MaxLevel].
func LevelForExperience(xp int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if xp < threshold {
			break
		}
		level = i + 1
	}
	return level
}

// ApplyExperience adds amount to the character's total and recomputes the
// level. Returns the new level and whether a threshold was crossed.
//
// Precondition: amount must be >= 0.
// Postcondition: c.Level == LevelForExperience(c.Experience); Level never decreases.
func (c *Character) ApplyExperience(amount int) (newLevel int, leveled bool) {
	c.Experience += amount
	newLevel = LevelForExperience(c.Experience)
	if newLevel > c.Level {
		c.Level = newLevel
		return newLevel, true
	}
	return c.Level, false
}
