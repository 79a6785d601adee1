// Package dice provides random number sources for initiative and other
// game rolls.
package dice

// Source produces random integers for dice rolls. Implementations must be
// safe for concurrent use.
type Source interface {
	// Intn returns a random int in [0, n). Precondition: n > 0.
	Intn(n int) int
}

// Roll returns the result of rolling a single die with the given number of
// sides using src.
//
// Precondition: sides >= 2; src must be non-nil.
// Postcondition: Returns a value in [1, sides].
func Roll(sides int, src Source) int {
	return src.Intn(sides) + 1
}

// D20 rolls a twenty-sided die.
//
// Postcondition: Returns a value in [1, 20].
func D20(src Source) int {
	return Roll(20, src)
}
