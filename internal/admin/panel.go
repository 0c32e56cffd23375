package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"lume_casino_bot/internal/domain"
)

// ErrNotAuthorized is returned when the actor's role does not cover the
// requested operation.
var ErrNotAuthorized = errors.New("not authorized")

// Corrector is the slice of the ledger the panel needs.
type Corrector interface {
	Apply(ctx context.Context, userID int64, delta float64, reason string) (float64, error)
	SetBalance(ctx context.Context, userID int64, amount float64) (float64, error)
}

// OddsSetter stores win chance overrides.
type OddsSetter interface {
	SetWinChance(ctx context.Context, id domain.GameID, value int) error
}

// Panel executes privileged operations after checking the actor's role.
type Panel struct {
	accounts adminCollection
	ledger   Corrector
	odds     OddsSetter
	logger   *logrus.Entry
	now      func() time.Time
}

// NewPanel constructs a Panel.
func NewPanel(accounts adminCollection, ledger Corrector, odds OddsSetter, logger *logrus.Entry) *Panel {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Panel{accounts: accounts, ledger: ledger, odds: odds, logger: logger, now: time.Now}
}

func (p *Panel) guard(ctx context.Context) error {
	if p == nil || p.accounts == nil || p.ledger == nil {
		return errors.New("admin panel is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// Privilege returns the capability level of a user's stored role. Unknown
// users carry no privilege.
func (p *Panel) Privilege(ctx context.Context, userID int64) (domain.Privilege, error) {
	if err := p.guard(ctx); err != nil {
		return domain.PrivilegeNone, err
	}

	res := p.accounts.FindOne(ctx, bson.M{"user_id": userID})
	if res == nil {
		return domain.PrivilegeNone, errors.New("find account returned no result")
	}

	err := res.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PrivilegeNone, nil
	}
	if err != nil {
		return domain.PrivilegeNone, fmt.Errorf("find account: %w", err)
	}

	var acct domain.Account
	if err := res.Decode(&acct); err != nil {
		return domain.PrivilegeNone, fmt.Errorf("decode account: %w", err)
	}

	return domain.PrivilegeForRole(acct.Role), nil
}

func (p *Panel) requirePrivilege(ctx context.Context, actorID int64, level domain.Privilege) error {
	privilege, err := p.Privilege(ctx, actorID)
	if err != nil {
		return err
	}
	if privilege < level {
		return fmt.Errorf("%w: user %d", ErrNotAuthorized, actorID)
	}
	return nil
}

// Promote grants the admin role. Only the owner can change roles, and the
// owner's own role is immutable.
func (p *Panel) Promote(ctx context.Context, actorID, targetID int64) error {
	return p.setRole(ctx, actorID, targetID, domain.RoleAdmin, "admin_promoted")
}

// Demote reverts a target to the plain user role.
func (p *Panel) Demote(ctx context.Context, actorID, targetID int64) error {
	return p.setRole(ctx, actorID, targetID, domain.RoleUser, "admin_demoted")
}

func (p *Panel) setRole(ctx context.Context, actorID, targetID int64, role, event string) error {
	if err := p.guard(ctx); err != nil {
		return err
	}
	if err := p.requirePrivilege(ctx, actorID, domain.PrivilegeOwner); err != nil {
		return err
	}

	target, err := p.Privilege(ctx, targetID)
	if err != nil {
		return err
	}
	if target == domain.PrivilegeOwner {
		return fmt.Errorf("%w: owner role is immutable", ErrNotAuthorized)
	}

	_, err = p.accounts.UpdateOne(ctx,
		bson.M{"user_id": targetID},
		bson.M{"$set": bson.M{"role": role, "updated_at": p.now().UTC().Truncate(time.Millisecond)}},
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event":    event,
		"actor_id": actorID,
		"user_id":  targetID,
	}).Info("role changed")

	return nil
}

// Credit adds coins to a target's balance.
func (p *Panel) Credit(ctx context.Context, actorID, targetID int64, amount float64) (float64, error) {
	return p.correct(ctx, actorID, targetID, amount, "admin_credit")
}

// Debit removes coins from a target's balance, clamped at zero.
func (p *Panel) Debit(ctx context.Context, actorID, targetID int64, amount float64) (float64, error) {
	return p.correct(ctx, actorID, targetID, -amount, "admin_debit")
}

func (p *Panel) correct(ctx context.Context, actorID, targetID int64, delta float64, reason string) (float64, error) {
	if err := p.guard(ctx); err != nil {
		return 0, err
	}
	if err := p.requirePrivilege(ctx, actorID, domain.PrivilegeAdmin); err != nil {
		return 0, err
	}
	if delta == 0 {
		return 0, errors.New("amount must not be zero")
	}

	balance, err := p.ledger.Apply(ctx, targetID, delta, reason)
	if err != nil {
		return 0, err
	}

	p.logger.WithFields(logrus.Fields{
		"event":    reason,
		"actor_id": actorID,
		"user_id":  targetID,
		"delta":    delta,
	}).Info("balance corrected")

	return balance, nil
}

// ResetBalance puts a target back at the registration balance.
func (p *Panel) ResetBalance(ctx context.Context, actorID, targetID int64) (float64, error) {
	if err := p.guard(ctx); err != nil {
		return 0, err
	}
	if err := p.requirePrivilege(ctx, actorID, domain.PrivilegeAdmin); err != nil {
		return 0, err
	}

	balance, err := p.ledger.SetBalance(ctx, targetID, domain.DefaultBalance)
	if err != nil {
		return 0, err
	}

	p.logger.WithFields(logrus.Fields{
		"event":    "balance_reset",
		"actor_id": actorID,
		"user_id":  targetID,
	}).Info("balance reset")

	return balance, nil
}

// GiveAll credits every account at once. Owner only, since it moves the whole
// economy. The mass $inc bypasses the journal; the log entry is the audit
// trail.
func (p *Panel) GiveAll(ctx context.Context, actorID int64, amount float64) (int64, error) {
	if err := p.guard(ctx); err != nil {
		return 0, err
	}
	if err := p.requirePrivilege(ctx, actorID, domain.PrivilegeOwner); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, errors.New("amount must be positive")
	}

	result, err := p.accounts.UpdateMany(ctx,
		bson.M{},
		bson.M{
			"$inc": bson.M{"balance": amount},
			"$set": bson.M{"updated_at": p.now().UTC().Truncate(time.Millisecond)},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("mass credit: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event":    "mass_credit",
		"actor_id": actorID,
		"amount":   amount,
		"accounts": result.ModifiedCount,
	}).Info("all accounts credited")

	return result.ModifiedCount, nil
}

// SetWinChance stores a win chance override after the privilege check. Value
// validation is the odds table's concern.
func (p *Panel) SetWinChance(ctx context.Context, actorID int64, id domain.GameID, value int) error {
	if err := p.guard(ctx); err != nil {
		return err
	}
	if p.odds == nil {
		return errors.New("odds setter is not configured")
	}
	if err := p.requirePrivilege(ctx, actorID, domain.PrivilegeAdmin); err != nil {
		return err
	}

	return p.odds.SetWinChance(ctx, id, value)
}
