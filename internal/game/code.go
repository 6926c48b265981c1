package game

import "math/rand"

// RoomCodeLength is the number of letters in a room code
const RoomCodeLength = 4

const roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewRoomCode generates a short human-entry room code from the given
// randomness source. Uniqueness among joinable games is the store's job.
func NewRoomCode(rng *rand.Rand) string {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = roomCodeLetters[rng.Intn(len(roomCodeLetters))]
	}
	return string(b)
}
