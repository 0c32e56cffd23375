package domain

import "fmt"

// GameID identifies one of the built-in chance games.
type GameID string

const (
	GameRoulette GameID = "roulette"
	GamePlay     GameID = "play"
	GameRussian  GameID = "russian"
	GameJewish   GameID = "jewish"
	GameDice     GameID = "dice"
	GameSlots    GameID = "slots"
)

// GameDefinition describes the bet bounds, stake handling and payout rule of
// a single game. The win chance listed here is only the bootstrap value; the
// live value is administrator-adjustable through the odds table.
type GameDefinition struct {
	ID               GameID
	MinBet           float64
	MaxBet           float64 // 0 means no upper bound
	FixedBet         float64 // nonzero forces the stake regardless of input
	DefaultWinChance int
	PayoutMultiplier float64 // payout = multiplier * bet when nonzero
	FixedPayout      float64 // flat payout when nonzero
	FixedPenalty     float64 // flat loss on top of any stake, clamped to balance
	MutePenalty      bool    // loss is an external mute, not a balance debit
	ExternalRoll     bool    // outcome follows a platform-supplied die value
	RollMax          int     // highest valid external roll value
}

// FreeToPlay reports whether the game takes no stake.
func (d GameDefinition) FreeToPlay() bool {
	return d.MinBet == 0 && d.FixedBet == 0
}

// Stake returns the amount deducted upfront for the given bet.
func (d GameDefinition) Stake(bet float64) float64 {
	if d.FixedBet > 0 {
		return d.FixedBet
	}
	if d.FreeToPlay() {
		return 0
	}
	return bet
}

var gameDefinitions = map[GameID]GameDefinition{
	GameRoulette: {
		ID:               GameRoulette,
		MinBet:           25,
		DefaultWinChance: 30,
		PayoutMultiplier: 2,
	},
	GamePlay: {
		ID:               GamePlay,
		FixedBet:         25,
		DefaultWinChance: 40,
		FixedPayout:      40,
	},
	GameRussian: {
		ID:               GameRussian,
		DefaultWinChance: 35,
		FixedPayout:      35,
		MutePenalty:      true,
	},
	GameJewish: {
		ID:               GameJewish,
		DefaultWinChance: 50,
		FixedPayout:      25,
		FixedPenalty:     35,
	},
	GameDice: {
		ID:               GameDice,
		MinBet:           10,
		MaxBet:           100,
		PayoutMultiplier: 1.5,
		ExternalRoll:     true,
		RollMax:          6,
	},
	GameSlots: {
		ID:           GameSlots,
		FixedBet:     50,
		ExternalRoll: true,
		RollMax:      64,
	},
}

// LookupGame returns the definition for id.
func LookupGame(id GameID) (GameDefinition, error) {
	def, ok := gameDefinitions[id]
	if !ok {
		return GameDefinition{}, fmt.Errorf("%w: %q", ErrUnknownGame, id)
	}
	return def, nil
}

// Games returns the identifiers of every configured game.
func Games() []GameID {
	ids := make([]GameID, 0, len(gameDefinitions))
	for id := range gameDefinitions {
		ids = append(ids, id)
	}
	return ids
}
