package game

import (
	"crypto/rand"
	"math/big"
)

// DrawPercent returns a uniform value in [0,100) for Bernoulli win draws.
func DrawPercent() int {
	return randBelow(100)
}

// RollDie returns a uniform die value in 1..6, used when no platform roll is
// available (the web-app API path).
func RollDie() int {
	return 1 + randBelow(6)
}

// RollSlots returns a uniform slot value in 1..64.
func RollSlots() int {
	return 1 + randBelow(64)
}

// RandRange returns a uniform value in [min, max].
func RandRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + randBelow(max-min+1)
}

func randBelow(n int) int {
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(val.Int64())
}
