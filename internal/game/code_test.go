package game

import (
	"math/rand"
	"testing"
)

func TestNewRoomCode(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	code := NewRoomCode(rng)

	if len(code) != RoomCodeLength {
		t.Fatalf("expected code length %d, got %d", RoomCodeLength, len(code))
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			t.Errorf("room code contains invalid character: %c", c)
		}
	}
}

func TestNewRoomCodeIsDeterministicPerSeed(t *testing.T) {
	a := NewRoomCode(rand.New(rand.NewSource(7)))
	b := NewRoomCode(rand.New(rand.NewSource(7)))

	if a != b {
		t.Errorf("same seed should produce the same code: %s vs %s", a, b)
	}
}
