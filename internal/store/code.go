package store

import (
	"math/rand/v2"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultCodeLength is the length of generated room codes
const DefaultCodeLength = 4

// NewRoomCode generates length uppercase letters, each uniform over A-Z.
// A nil rng uses the package-level source. Uniqueness is checked by
// Store.Create, not here.
func NewRoomCode(rng *rand.Rand, length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[intN(len(codeAlphabet))]
	}
	return string(b)
}
