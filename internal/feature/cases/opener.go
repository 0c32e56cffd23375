// Package cases implements the daily prize case. Opening costs a flat fee,
// is limited to once per cooldown window and pays a weighted random prize.
// The cooldown stamp is a conditional update, so two concurrent opens can
// never both pass the window check.
package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lume_casino_bot/internal/domain"
	"lume_casino_bot/internal/game"
)

// Case pricing and pacing.
const (
	CaseCost = 100.0
	Cooldown = 24 * time.Hour
)

// Prize kinds.
const (
	PrizeCoins = "coins"
	PrizeXP    = "xp"
	PrizeRare  = "rare"
)

// Prize weights in percent and amount bounds.
const (
	coinsWeight = 70
	xpWeight    = 25

	coinsMin = 50
	coinsMax = 200
	xpMin    = 50
	xpMax    = 300

	rareCoins = 500.0
)

// Prize is what fell out of a case.
type Prize struct {
	Kind  string  `json:"kind"`
	Coins float64 `json:"coins,omitempty"`
	XP    int     `json:"xp,omitempty"`
}

// OpenResult is a successful case opening.
type OpenResult struct {
	Prize      Prize   `json:"prize"`
	NewBalance float64 `json:"new_balance"`
	Level      int     `json:"level,omitempty"`
	XP         int     `json:"xp,omitempty"`
}

type caseCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Wallet is the slice of the ledger the opener needs. Charge is the guarded
// debit: coverage check and deduction under the account lock.
type Wallet interface {
	Charge(ctx context.Context, userID int64, amount float64, reason string) (float64, error)
	Apply(ctx context.Context, userID int64, delta float64, reason string) (float64, error)
	AddXP(ctx context.Context, userID int64, amount int) (int, int, error)
}

// Opener runs case openings against the accounts collection and the ledger.
type Opener struct {
	accounts  caseCollection
	wallet    Wallet
	logger    *logrus.Entry
	now       func() time.Time
	draw      func() int
	randRange func(min, max int) int
}

// NewOpener constructs an Opener.
func NewOpener(accounts caseCollection, wallet Wallet, logger *logrus.Entry) *Opener {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Opener{
		accounts:  accounts,
		wallet:    wallet,
		logger:    logger,
		now:       time.Now,
		draw:      game.DrawPercent,
		randRange: game.RandRange,
	}
}

func (o *Opener) guard(ctx context.Context) error {
	if o == nil || o.accounts == nil || o.wallet == nil {
		return errors.New("case opener is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// CanOpen reports whether the user's cooldown window has elapsed, and if not,
// how long remains.
func (o *Opener) CanOpen(ctx context.Context, userID int64) (bool, time.Duration, error) {
	if err := o.guard(ctx); err != nil {
		return false, 0, err
	}

	res := o.accounts.FindOne(ctx, bson.M{"user_id": userID})
	if res == nil {
		return false, 0, errors.New("find account returned no result")
	}

	err := res.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("find account: %w", err)
	}

	var acct domain.Account
	if err := res.Decode(&acct); err != nil {
		return false, 0, fmt.Errorf("decode account: %w", err)
	}
	if acct.LastCaseOpen == nil {
		return true, 0, nil
	}

	elapsed := o.now().UTC().Sub(acct.LastCaseOpen.UTC())
	if elapsed >= Cooldown {
		return true, 0, nil
	}

	return false, Cooldown - elapsed, nil
}

// Open charges the case fee, stamps the cooldown and pays a weighted prize.
// It fails with ErrOnCooldown when the window has not elapsed and with
// ErrInsufficientBalance when the fee is not covered; neither failure
// touches the balance. The fee is a guarded debit and the stamp is refunded
// against, so neither can land without the other.
func (o *Opener) Open(ctx context.Context, userID int64) (OpenResult, error) {
	if err := o.guard(ctx); err != nil {
		return OpenResult{}, err
	}

	// Cheap window read so the usual cooldown rejection never moves coins.
	// The conditional stamp below stays the authoritative gate.
	ok, _, err := o.CanOpen(ctx, userID)
	if err != nil {
		return OpenResult{}, err
	}
	if !ok {
		return OpenResult{}, domain.ErrOnCooldown
	}

	newBalance, err := o.wallet.Charge(ctx, userID, CaseCost, "case_open")
	if err != nil {
		return OpenResult{}, err
	}

	now := o.now().UTC().Truncate(time.Millisecond)
	cutoff := now.Add(-Cooldown)

	// Stamping and checking the window in one conditional update keeps the
	// once-per-window rule intact under concurrent opens.
	result, err := o.accounts.UpdateOne(ctx,
		bson.M{
			"user_id": userID,
			"$or": bson.A{
				bson.M{"last_case_open": bson.M{"$exists": false}},
				bson.M{"last_case_open": bson.M{"$lte": cutoff}},
			},
		},
		bson.M{"$set": bson.M{"last_case_open": now, "updated_at": now}},
	)
	if err != nil {
		o.refundFee(ctx, userID)
		return OpenResult{}, fmt.Errorf("stamp cooldown: %w", err)
	}
	if result == nil || result.MatchedCount == 0 {
		o.refundFee(ctx, userID)
		return OpenResult{}, domain.ErrOnCooldown
	}

	prize := o.drawPrize()
	open := OpenResult{Prize: prize, NewBalance: newBalance}

	switch prize.Kind {
	case PrizeXP:
		level, xp, err := o.wallet.AddXP(ctx, userID, prize.XP)
		if err != nil {
			return OpenResult{}, fmt.Errorf("credit xp prize: %w", err)
		}
		open.Level = level
		open.XP = xp
	default:
		newBalance, err = o.wallet.Apply(ctx, userID, prize.Coins, "case_prize")
		if err != nil {
			return OpenResult{}, fmt.Errorf("credit coin prize: %w", err)
		}
		open.NewBalance = newBalance
	}

	o.logger.WithFields(logrus.Fields{
		"event":   "case_opened",
		"user_id": userID,
		"prize":   prize.Kind,
	}).Info("case opened")

	return open, nil
}

// refundFee returns the collected fee after a stamp that did not land. A
// failed refund is logged; the journal carries both sides for reconciliation.
func (o *Opener) refundFee(ctx context.Context, userID int64) {
	if _, err := o.wallet.Apply(ctx, userID, CaseCost, "case_refund"); err != nil {
		o.logger.WithFields(logrus.Fields{
			"event":   "case_refund_failed",
			"user_id": userID,
		}).WithError(err).Error("case fee not refunded")
	}
}

func (o *Opener) drawPrize() Prize {
	roll := o.draw()
	switch {
	case roll < coinsWeight:
		return Prize{Kind: PrizeCoins, Coins: float64(o.randRange(coinsMin, coinsMax))}
	case roll < coinsWeight+xpWeight:
		return Prize{Kind: PrizeXP, XP: o.randRange(xpMin, xpMax)}
	default:
		return Prize{Kind: PrizeRare, Coins: rareCoins}
	}
}
