package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"lume_casino_bot/internal/domain"
	"lume_casino_bot/internal/game"
)

// WinChanceProvider yields the current administrator-set win probability for
// a chance-based game.
type WinChanceProvider interface {
	WinChance(ctx context.Context, id domain.GameID) (int, error)
}

// PlayResult summarizes the balance effect of one resolved round.
type PlayResult struct {
	Game       domain.GameID `json:"game"`
	Won        bool          `json:"won"`
	Label      string        `json:"label"`
	Roll       int           `json:"roll,omitempty"`
	Winnings   float64       `json:"winnings"`
	Loss       float64       `json:"loss"`
	Delta      float64       `json:"delta"`
	Muted      bool          `json:"muted,omitempty"`
	NewBalance float64       `json:"new_balance"`
}

// BurnResult reports a coin-to-XP exchange.
type BurnResult struct {
	Burned     int     `json:"burned"`
	XPGained   int     `json:"xp_gained"`
	Level      int     `json:"level"`
	XP         int     `json:"xp"`
	NewBalance float64 `json:"new_balance"`
}

// DiscountResult reports a purchased shop-discount tier.
type DiscountResult struct {
	Tier       int     `json:"tier"`
	Price      float64 `json:"price"`
	NewBalance float64 `json:"new_balance"`
}

// Coins burned convert to experience at this rate.
const BurnXPRate = 2

// Service runs game rounds against the ledger. The account lock is held from
// the balance check through payout, so a player cannot start a second round
// against a balance a first round is about to spend.
type Service struct {
	ledger    *Ledger
	odds      WinChanceProvider
	logger    *logrus.Entry
	draw      func() int
	rollDie   func() int
	rollSlots func() int
}

// NewService constructs the game engine over a ledger and an odds provider.
func NewService(ledger *Ledger, odds WinChanceProvider, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Service{
		ledger:    ledger,
		odds:      odds,
		logger:    logger,
		draw:      game.DrawPercent,
		rollDie:   game.RollDie,
		rollSlots: game.RollSlots,
	}
}

func (s *Service) guard(ctx context.Context) error {
	if s == nil || s.ledger == nil {
		return errors.New("game service is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// PlayGame runs one round of the identified game. For external-roll games a
// platform die value may be supplied as externalRoll; zero means the service
// rolls internally. Rejected rounds (unknown game, bad bet or roll, not
// enough balance) leave the account untouched.
func (s *Service) PlayGame(ctx context.Context, userID int64, id domain.GameID, bet float64, externalRoll int) (PlayResult, error) {
	if err := s.guard(ctx); err != nil {
		return PlayResult{}, err
	}

	def, err := domain.LookupGame(id)
	if err != nil {
		return PlayResult{}, err
	}
	if def.FixedBet > 0 {
		bet = def.FixedBet
	}
	if err := game.ValidateBet(def, bet); err != nil {
		return PlayResult{}, err
	}

	roll := externalRoll
	if def.ExternalRoll {
		if roll == 0 {
			roll = s.rollFor(def)
		}
		if err := game.ValidateRoll(def, roll); err != nil {
			return PlayResult{}, err
		}
	}

	chance := 0
	if !def.ExternalRoll {
		if s.odds == nil {
			chance = def.DefaultWinChance
		} else {
			chance, err = s.odds.WinChance(ctx, id)
			if err != nil {
				return PlayResult{}, fmt.Errorf("read win chance: %w", err)
			}
		}
	}

	unlock := s.ledger.locks.lock(userID)
	defer unlock()

	acct, err := s.ledger.getLocked(ctx, userID)
	if err != nil {
		return PlayResult{}, err
	}

	stake := def.Stake(bet)
	if acct.Balance < stake {
		return PlayResult{}, fmt.Errorf("%w: have %.2f, need %.2f", domain.ErrInsufficientBalance, acct.Balance, stake)
	}

	outcome := game.Resolve(def, bet, chance, s.draw(), roll)

	startBalance := acct.Balance
	balance := acct.Balance

	if outcome.Stake > 0 {
		balance, err = s.ledger.adjustLocked(ctx, acct, -outcome.Stake, "stake:"+string(id))
		if err != nil {
			return PlayResult{}, err
		}
		acct.Balance = balance
	}

	result := PlayResult{
		Game:  id,
		Won:   outcome.Won,
		Label: outcome.Label,
		Roll:  outcome.Roll,
		Muted: outcome.Mute,
	}

	if outcome.Payout > 0 {
		balance, err = s.ledger.adjustLocked(ctx, acct, outcome.Payout, "payout:"+string(id))
		if err != nil {
			return PlayResult{}, err
		}
		acct.Balance = balance
		result.Winnings = outcome.Payout
	}

	if outcome.Penalty > 0 {
		// A flat penalty never drives the balance negative; the reported
		// loss is what was actually taken.
		applied := outcome.Penalty
		if applied > acct.Balance {
			applied = acct.Balance
		}
		if applied > 0 {
			balance, err = s.ledger.adjustLocked(ctx, acct, -applied, "penalty:"+string(id))
			if err != nil {
				return PlayResult{}, err
			}
			acct.Balance = balance
		}
		result.Loss = applied
	}

	if !outcome.Won && outcome.Stake > 0 {
		result.Loss = outcome.Stake
	}

	result.NewBalance = balance
	result.Delta = balance - startBalance

	s.logger.WithFields(logrus.Fields{
		"event":   "game_resolved",
		"user_id": userID,
		"game":    string(id),
		"label":   result.Label,
		"delta":   result.Delta,
		"balance": balance,
	}).Info("game round resolved")

	return result, nil
}

// Burn exchanges coins for experience at the fixed rate. The whole amount
// must be covered; partial burns are rejected.
func (s *Service) Burn(ctx context.Context, userID int64, amount int) (BurnResult, error) {
	if err := s.guard(ctx); err != nil {
		return BurnResult{}, err
	}
	if amount <= 0 {
		return BurnResult{}, fmt.Errorf("burn amount must be positive, got %d", amount)
	}

	unlock := s.ledger.locks.lock(userID)
	defer unlock()

	acct, err := s.ledger.getLocked(ctx, userID)
	if err != nil {
		return BurnResult{}, err
	}
	if acct.Balance < float64(amount) {
		return BurnResult{}, fmt.Errorf("%w: have %.2f, need %d", domain.ErrInsufficientBalance, acct.Balance, amount)
	}

	balance, err := s.ledger.adjustLocked(ctx, acct, -float64(amount), "burn")
	if err != nil {
		return BurnResult{}, err
	}

	gained := amount * BurnXPRate
	level, xp, err := s.ledger.addXPLocked(ctx, acct, gained)
	if err != nil {
		return BurnResult{}, err
	}

	return BurnResult{
		Burned:     amount,
		XPGained:   gained,
		Level:      level,
		XP:         xp,
		NewBalance: balance,
	}, nil
}

// BuyDiscount sells a shop-discount tier at its fixed price. Charge and tier
// write happen under the account lock, so the debited coins always correspond
// to the stored tier.
func (s *Service) BuyDiscount(ctx context.Context, userID int64, tier int) (DiscountResult, error) {
	if err := s.guard(ctx); err != nil {
		return DiscountResult{}, err
	}

	price, ok := domain.DiscountTierPrices[tier]
	if !ok {
		return DiscountResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidDiscountTier, tier)
	}

	unlock := s.ledger.locks.lock(userID)
	defer unlock()

	acct, err := s.ledger.getLocked(ctx, userID)
	if err != nil {
		return DiscountResult{}, err
	}
	if acct.Balance < price {
		return DiscountResult{}, fmt.Errorf("%w: have %.2f, need %.2f", domain.ErrInsufficientBalance, acct.Balance, price)
	}

	balance, err := s.ledger.adjustLocked(ctx, acct, -price, "discount_purchase")
	if err != nil {
		return DiscountResult{}, err
	}
	if err := s.ledger.setDiscountTierLocked(ctx, userID, tier); err != nil {
		return DiscountResult{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"event":   "discount_purchased",
		"user_id": userID,
		"tier":    tier,
		"price":   price,
	}).Info("discount tier purchased")

	return DiscountResult{Tier: tier, Price: price, NewBalance: balance}, nil
}

func (s *Service) rollFor(def domain.GameDefinition) int {
	if def.ID == domain.GameSlots {
		return s.rollSlots()
	}
	return s.rollDie()
}
