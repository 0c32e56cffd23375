package domain

import "errors"

// Sentinel errors shared by the economy core. All of them are rejected-before-
// mutation conditions: a caller observing one of these can assume no balance
// was touched.
var (
	ErrUnknownGame         = errors.New("unknown game")
	ErrInvalidBet          = errors.New("bet outside the allowed range")
	ErrInvalidRoll         = errors.New("external roll outside the allowed range")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidOddsValue    = errors.New("win chance must be between 0 and 100")
	ErrAlreadyClaimed      = errors.New("reward already claimed")
	ErrOnCooldown          = errors.New("cooldown has not elapsed")
	ErrUnknownTitle        = errors.New("unknown title")
	ErrInvalidDiscountTier = errors.New("invalid discount tier")
	ErrBalanceMismatch     = errors.New("balance does not match the required amount")
)
