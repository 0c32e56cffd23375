// Package game implements pure outcome resolution for the chance games.
// Resolution is a function of the game definition, the bet, the current win
// chance and the supplied randomness; it never touches storage, so the
// transaction applier can reason about balance effects separately.
package game

import (
	"fmt"

	"lume_casino_bot/internal/domain"
)

// Outcome labels reported to callers and the web-app API.
const (
	LabelWin     = "win"
	LabelLose    = "lose"
	LabelJackpot = "jackpot"
	LabelDouble  = "double"
	LabelMute    = "mute"
)

// Slot machine roll bands: a platform slot roll is 1..64 where 1 is the
// triple match and 2..7 are double matches.
const (
	slotsJackpotRoll   = 1
	slotsDoubleRollMax = 7
)

const diceWinThreshold = 4

// Outcome is the resolved result of a single game round. Stake is the amount
// the applier deducts upfront; Payout is credited on top afterwards; Penalty
// is a nominal extra loss that the applier clamps to the available balance.
type Outcome struct {
	Game    domain.GameID
	Won     bool
	Label   string
	Roll    int
	Stake   float64
	Payout  float64
	Penalty float64
	Mute    bool
}

// ValidateBet checks the bet against the game's bounds. Games with a fixed
// stake or no stake accept any bet value since the stake is not caller-chosen.
func ValidateBet(def domain.GameDefinition, bet float64) error {
	if def.FixedBet > 0 || def.FreeToPlay() {
		return nil
	}

	if bet < def.MinBet {
		return fmt.Errorf("%w: %s requires at least %.0f", domain.ErrInvalidBet, def.ID, def.MinBet)
	}
	if def.MaxBet > 0 && bet > def.MaxBet {
		return fmt.Errorf("%w: %s allows at most %.0f", domain.ErrInvalidBet, def.ID, def.MaxBet)
	}

	return nil
}

// ValidateRoll checks a platform-supplied die value against the game's range.
func ValidateRoll(def domain.GameDefinition, roll int) error {
	if !def.ExternalRoll {
		return nil
	}

	if roll < 1 || roll > def.RollMax {
		return fmt.Errorf("%w: %s expects 1..%d, got %d", domain.ErrInvalidRoll, def.ID, def.RollMax, roll)
	}

	return nil
}

// Resolve draws the outcome for one round. For chance-based games the win is
// a Bernoulli draw: draw is a uniform value in [0,100) and the round is won
// when draw < winChance. External-roll games derive the outcome from roll
// instead and ignore winChance entirely.
func Resolve(def domain.GameDefinition, bet float64, winChance int, draw int, roll int) Outcome {
	out := Outcome{
		Game:  def.ID,
		Roll:  roll,
		Stake: def.Stake(bet),
	}

	if def.ExternalRoll {
		return resolveRoll(def, bet, out)
	}

	out.Won = draw < winChance
	if out.Won {
		out.Label = LabelWin
		out.Payout = payoutFor(def, bet)
		return out
	}

	out.Label = LabelLose
	if def.MutePenalty {
		out.Label = LabelMute
		out.Mute = true
	}
	out.Penalty = def.FixedPenalty

	return out
}

func resolveRoll(def domain.GameDefinition, bet float64, out Outcome) Outcome {
	switch def.ID {
	case domain.GameSlots:
		switch {
		case out.Roll == slotsJackpotRoll:
			out.Won = true
			out.Label = LabelJackpot
			out.Payout = 5 * out.Stake
		case out.Roll <= slotsDoubleRollMax:
			out.Won = true
			out.Label = LabelDouble
			out.Payout = 2 * out.Stake
		default:
			out.Label = LabelLose
		}
	default:
		if out.Roll >= diceWinThreshold {
			out.Won = true
			out.Label = LabelWin
			out.Payout = def.PayoutMultiplier * bet
		} else {
			out.Label = LabelLose
		}
	}

	return out
}

func payoutFor(def domain.GameDefinition, bet float64) float64 {
	if def.FixedPayout > 0 {
		return def.FixedPayout
	}
	return def.PayoutMultiplier * bet
}
