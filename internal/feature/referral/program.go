// Package referral implements the invite reward program. A referred user may
// be claimed exactly once; the unique index on the referrals collection is
// the idempotency guard, so concurrent claims for the same user collapse to
// a single reward.
package referral

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
)

// Rewards credited when a claim succeeds.
const (
	RewardReferred = 200.0
	RewardReferrer = 100.0
)

// ErrSelfReferral is returned when a user tries to refer themselves.
var ErrSelfReferral = errors.New("cannot refer yourself")

// ErrNotNewAccount is returned when the referred account has already moved
// coins. Only accounts still at the registration balance qualify.
var ErrNotNewAccount = errors.New("referred account is not new")

type referralCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// Crediter is the slice of the ledger the program needs. ApplyIfBalance is
// the conditional credit: the balance check and the mutation share the
// account lock.
type Crediter interface {
	ApplyIfBalance(ctx context.Context, userID int64, required, delta float64, reason string) (float64, error)
	Apply(ctx context.Context, userID int64, delta float64, reason string) (float64, error)
}

// Program applies referral claims and reports referral counts.
type Program struct {
	referrals referralCollection
	ledger    Crediter
	logger    *logrus.Entry
	now       func() time.Time
}

// NewProgram constructs a Program over the referrals collection and a ledger.
func NewProgram(referrals referralCollection, ledger Crediter, logger *logrus.Entry) *Program {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Program{referrals: referrals, ledger: ledger, logger: logger, now: time.Now}
}

func (p *Program) guard(ctx context.Context) error {
	if p == nil || p.referrals == nil || p.ledger == nil {
		return errors.New("referral program is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// Claim records that referrerID invited referredID and credits both sides.
// The referred account must still be at the registration balance, and each
// user can only ever be claimed once.
func (p *Program) Claim(ctx context.Context, referredID, referrerID int64) error {
	if err := p.guard(ctx); err != nil {
		return err
	}
	if referredID == referrerID {
		return ErrSelfReferral
	}

	// The freshness gate and the referred credit are one conditional apply:
	// only an account still at the registration balance takes the reward, and
	// a spend racing the claim fails the condition instead of slipping past a
	// stale read. This also serializes concurrent claims for the same user,
	// since the first success moves the balance off the default.
	if _, err := p.ledger.ApplyIfBalance(ctx, referredID, domain.DefaultBalance, RewardReferred, "referral_bonus"); err != nil {
		if errors.Is(err, domain.ErrBalanceMismatch) {
			return ErrNotNewAccount
		}
		return fmt.Errorf("credit referred: %w", err)
	}

	record := domain.Referral{
		UserID:        referredID,
		ReferrerID:    referrerID,
		RewardClaimed: true,
		CreatedAt:     p.now().UTC().Truncate(time.Millisecond),
	}

	// The unique index is still the claim-once guard; a duplicate insert
	// reverses the credit that was paid above.
	if _, err := p.referrals.InsertOne(ctx, record); err != nil {
		p.reverseReferredCredit(ctx, referredID)
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyClaimed
		}
		return fmt.Errorf("record referral: %w", err)
	}

	// The referrer credit is best-effort; the claim stands either way.
	if _, err := p.ledger.Apply(ctx, referrerID, RewardReferrer, "referral_reward"); err != nil {
		p.logger.WithFields(logrus.Fields{
			"event":   "referral_credit_failed",
			"user_id": referrerID,
		}).WithError(err).Error("referrer reward not credited")
	}

	p.logger.WithFields(logrus.Fields{
		"event":       "referral_claimed",
		"user_id":     referredID,
		"referrer_id": referrerID,
	}).Info("referral claimed")

	return nil
}

// reverseReferredCredit takes back the referred reward when the claim record
// did not land. A failed reversal is logged; the journal carries both sides.
func (p *Program) reverseReferredCredit(ctx context.Context, referredID int64) {
	if _, err := p.ledger.Apply(ctx, referredID, -RewardReferred, "referral_reversal"); err != nil {
		p.logger.WithFields(logrus.Fields{
			"event":   "referral_reversal_failed",
			"user_id": referredID,
		}).WithError(err).Error("referred reward not reversed")
	}
}

// Count returns how many users the referrer has brought in.
func (p *Program) Count(ctx context.Context, referrerID int64) (int64, error) {
	if err := p.guard(ctx); err != nil {
		return 0, err
	}

	count, err := p.referrals.CountDocuments(ctx, bson.M{"referrer_id": referrerID})
	if err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}

	return count, nil
}
