package dice

import (
	"testing"

	"pgregory.net/rapid"
)

func TestCryptoSourceRange(t *testing.T) {
	src := NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(20)
		if v < 0 || v >= 20 {
			t.Fatalf("Intn(20) returned %d, out of [0, 20)", v)
		}
	}
}

func TestCryptoSourcePanicsOnNonPositive(t *testing.T) {
	src := NewCryptoSource()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for Intn(0)")
		}
	}()
	src.Intn(0)
}

func TestPropertyRollWithinBounds(t *testing.T) {
	src := NewCryptoSource()
	rapid.Check(t, func(t *rapid.T) {
		sides := rapid.IntRange(2, 100).Draw(t, "sides")
		v := Roll(sides, src)
		if v < 1 || v > sides {
			t.Fatalf("Roll(%d) = %d, out of [1, %d]", sides, v, sides)
		}
	})
}

func TestD20Bounds(t *testing.T) {
	src := NewCryptoSource()
	for i := 0; i < 200; i++ {
		if v := D20(src); v < 1 || v > 20 {
			t.Fatalf("D20 returned %d", v)
		}
	}
}
