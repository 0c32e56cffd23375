// Package economy implements the balance ledger and the game round engine.
// The ledger is the single mutation path for balances: every change goes
// through a per-account lock, clamps the result at zero and records a journal
// entry, so callers never observe a negative balance or a silent adjustment.
package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lume_casino_bot/internal/domain"
)

// XP required to advance from a level is level * XPPerLevelStep. The advance
// loop consumes exact-threshold amounts, so 1500 XP at a fresh level 1 lands
// on level 3 with zero remainder.
const XPPerLevelStep = 500

type accountCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type journalCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

type journalEntry struct {
	TxID      string    `bson:"tx_id"`
	UserID    int64     `bson:"user_id"`
	Delta     float64   `bson:"delta"`
	Balance   float64   `bson:"balance"`
	Reason    string    `bson:"reason"`
	CreatedAt time.Time `bson:"created_at"`
}

// Ledger owns every balance and progression mutation. Accounts are created
// lazily with the registration defaults on first access.
type Ledger struct {
	accounts accountCollection
	journal  journalCollection
	locks    *accountLocks
	logger   *logrus.Entry
	now      func() time.Time
}

// NewLedger constructs a Ledger over the accounts and journal collections.
func NewLedger(accounts accountCollection, journal journalCollection, logger *logrus.Entry) *Ledger {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Ledger{
		accounts: accounts,
		journal:  journal,
		locks:    newAccountLocks(),
		logger:   logger,
		now:      time.Now,
	}
}

func (l *Ledger) guard(ctx context.Context) error {
	if l == nil || l.accounts == nil {
		return errors.New("ledger is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// Balance returns the user's balance, creating the account if needed.
func (l *Ledger) Balance(ctx context.Context, userID int64) (float64, error) {
	acct, err := l.Profile(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Profile returns the full account record, creating it if needed.
func (l *Ledger) Profile(ctx context.Context, userID int64) (domain.Account, error) {
	if err := l.guard(ctx); err != nil {
		return domain.Account{}, err
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	return l.getLocked(ctx, userID)
}

// Apply adds delta to the user's balance, clamping at zero, and journals the
// change under the given reason. It returns the resulting balance.
func (l *Ledger) Apply(ctx context.Context, userID int64, delta float64, reason string) (float64, error) {
	if err := l.guard(ctx); err != nil {
		return 0, err
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	acct, err := l.getLocked(ctx, userID)
	if err != nil {
		return 0, err
	}

	return l.adjustLocked(ctx, acct, delta, reason)
}

// Adjust is Apply with a generic administrative reason.
func (l *Ledger) Adjust(ctx context.Context, userID int64, delta float64) (float64, error) {
	return l.Apply(ctx, userID, delta, "adjust")
}

// Charge deducts amount only when the balance covers it in full. The coverage
// check and the debit share the account lock, so a concurrent spend cannot
// slip between them and leave the clamp collecting less than the fee.
func (l *Ledger) Charge(ctx context.Context, userID int64, amount float64, reason string) (float64, error) {
	if err := l.guard(ctx); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("charge amount must be positive, got %v", amount)
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	acct, err := l.getLocked(ctx, userID)
	if err != nil {
		return 0, err
	}
	if acct.Balance < amount {
		return 0, fmt.Errorf("%w: have %.2f, need %.2f", domain.ErrInsufficientBalance, acct.Balance, amount)
	}

	return l.adjustLocked(ctx, acct, -amount, reason)
}

// ApplyIfBalance applies delta only when the current balance equals required.
// Check and mutation share the account lock; a balance moved by a concurrent
// spend fails the condition with ErrBalanceMismatch and nothing changes.
func (l *Ledger) ApplyIfBalance(ctx context.Context, userID int64, required, delta float64, reason string) (float64, error) {
	if err := l.guard(ctx); err != nil {
		return 0, err
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	acct, err := l.getLocked(ctx, userID)
	if err != nil {
		return 0, err
	}
	if acct.Balance != required {
		return 0, fmt.Errorf("%w: have %.2f, want %.2f", domain.ErrBalanceMismatch, acct.Balance, required)
	}

	return l.adjustLocked(ctx, acct, delta, reason)
}

// SetBalance overwrites the user's balance. Negative targets clamp to zero.
func (l *Ledger) SetBalance(ctx context.Context, userID int64, amount float64) (float64, error) {
	if err := l.guard(ctx); err != nil {
		return 0, err
	}
	if amount < 0 {
		amount = 0
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	acct, err := l.getLocked(ctx, userID)
	if err != nil {
		return 0, err
	}

	return l.adjustLocked(ctx, acct, amount-acct.Balance, "set_balance")
}

// AddXP grants experience and advances levels while the escalating threshold
// is met. It returns the resulting level and leftover XP.
func (l *Ledger) AddXP(ctx context.Context, userID int64, amount int) (int, int, error) {
	if err := l.guard(ctx); err != nil {
		return 0, 0, err
	}
	if amount < 0 {
		return 0, 0, fmt.Errorf("xp amount must not be negative, got %d", amount)
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	acct, err := l.getLocked(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	return l.addXPLocked(ctx, acct, amount)
}

// Transfer moves amount from one account to another. The sender must cover
// the full amount; the receiver is created lazily. Both locks are held for
// the duration so concurrent transfers cannot double-spend.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID int64, amount float64) (float64, error) {
	if err := l.guard(ctx); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("transfer amount must be positive, got %v", amount)
	}
	if fromID == toID {
		return 0, errors.New("cannot transfer to the same account")
	}

	unlock := l.locks.lockPair(fromID, toID)
	defer unlock()

	sender, err := l.getLocked(ctx, fromID)
	if err != nil {
		return 0, err
	}
	if sender.Balance < amount {
		return 0, fmt.Errorf("%w: have %.2f, need %.2f", domain.ErrInsufficientBalance, sender.Balance, amount)
	}

	receiver, err := l.getLocked(ctx, toID)
	if err != nil {
		return 0, err
	}

	remaining, err := l.adjustLocked(ctx, sender, -amount, "transfer_out")
	if err != nil {
		return 0, err
	}
	if _, err := l.adjustLocked(ctx, receiver, amount, "transfer_in"); err != nil {
		return 0, fmt.Errorf("credit receiver: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"event":   "transfer",
		"from_id": fromID,
		"to_id":   toID,
		"amount":  amount,
	}).Info("coins transferred")

	return remaining, nil
}

// SetDiscountTier stores one of the allowed purchase-discount percentages.
func (l *Ledger) SetDiscountTier(ctx context.Context, userID int64, tier int) error {
	if err := l.guard(ctx); err != nil {
		return err
	}
	if !domain.ValidDiscountTier(tier) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidDiscountTier, tier)
	}

	unlock := l.locks.lock(userID)
	defer unlock()

	if _, err := l.getLocked(ctx, userID); err != nil {
		return err
	}

	return l.setDiscountTierLocked(ctx, userID, tier)
}

// setDiscountTierLocked stores the tier. Callers must hold the account lock
// and have validated the tier.
func (l *Ledger) setDiscountTierLocked(ctx context.Context, userID int64, tier int) error {
	_, err := l.accounts.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"discount_tier": tier, "updated_at": l.stamp()}},
	)
	if err != nil {
		return fmt.Errorf("set discount tier: %w", err)
	}

	return nil
}

// getLocked loads the account, creating it with registration defaults when
// absent. Callers must hold the account lock.
func (l *Ledger) getLocked(ctx context.Context, userID int64) (domain.Account, error) {
	res := l.accounts.FindOne(ctx, bson.M{"user_id": userID})
	if res == nil {
		return domain.Account{}, errors.New("find account returned no result")
	}

	err := res.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return l.createLocked(ctx, userID)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("find account: %w", err)
	}

	var acct domain.Account
	if err := res.Decode(&acct); err != nil {
		return domain.Account{}, fmt.Errorf("decode account: %w", err)
	}
	if acct.Level < domain.DefaultLevel {
		acct.Level = domain.DefaultLevel
	}

	return acct, nil
}

func (l *Ledger) createLocked(ctx context.Context, userID int64) (domain.Account, error) {
	now := l.stamp()
	acct := domain.Account{
		UserID:    userID,
		Balance:   domain.DefaultBalance,
		Level:     domain.DefaultLevel,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Upsert with $setOnInsert keeps creation idempotent against accounts
	// registered concurrently by the owner bootstrap.
	_, err := l.accounts.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"user_id":       acct.UserID,
			"balance":       acct.Balance,
			"xp":            0,
			"level":         acct.Level,
			"discount_tier": 0,
			"role":          acct.Role,
			"created_at":    acct.CreatedAt,
			"updated_at":    acct.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"event":   "account_created",
		"user_id": userID,
	}).Info("ledger account created")

	return acct, nil
}

// adjustLocked applies delta to the given loaded account, clamping at zero.
// Callers must hold the account lock; acct carries the pre-change balance.
func (l *Ledger) adjustLocked(ctx context.Context, acct domain.Account, delta float64, reason string) (float64, error) {
	newBalance := acct.Balance + delta
	if newBalance < 0 {
		newBalance = 0
	}

	_, err := l.accounts.UpdateOne(ctx,
		bson.M{"user_id": acct.UserID},
		bson.M{"$set": bson.M{"balance": newBalance, "updated_at": l.stamp()}},
	)
	if err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}

	l.record(ctx, acct.UserID, newBalance-acct.Balance, newBalance, reason)

	return newBalance, nil
}

func (l *Ledger) addXPLocked(ctx context.Context, acct domain.Account, amount int) (int, int, error) {
	xp := acct.XP + amount
	level := acct.Level

	for xp >= level*XPPerLevelStep {
		xp -= level * XPPerLevelStep
		level++
	}

	_, err := l.accounts.UpdateOne(ctx,
		bson.M{"user_id": acct.UserID},
		bson.M{"$set": bson.M{"xp": xp, "level": level, "updated_at": l.stamp()}},
	)
	if err != nil {
		return 0, 0, fmt.Errorf("update xp: %w", err)
	}

	if level > acct.Level {
		l.logger.WithFields(logrus.Fields{
			"event":   "level_up",
			"user_id": acct.UserID,
			"level":   level,
		}).Info("account leveled up")
	}

	return level, xp, nil
}

// record writes a journal entry. Journal writes are best-effort audit trail;
// a failure is logged but never rolls back the balance change.
func (l *Ledger) record(ctx context.Context, userID int64, delta, balance float64, reason string) {
	if l.journal == nil {
		return
	}

	entry := journalEntry{
		TxID:      uuid.NewString(),
		UserID:    userID,
		Delta:     delta,
		Balance:   balance,
		Reason:    reason,
		CreatedAt: l.stamp(),
	}

	if _, err := l.journal.InsertOne(ctx, entry); err != nil {
		l.logger.WithFields(logrus.Fields{
			"event":   "journal_write_failed",
			"user_id": userID,
			"reason":  reason,
		}).WithError(err).Warn("journal entry dropped")
	}
}

func (l *Ledger) stamp() time.Time {
	return l.now().UTC().Truncate(time.Millisecond)
}
