// Package titles sells custom chat titles for coins. Permanent titles come
// from a fixed price table; temporary titles are priced by duration, recorded
// in the titles collection and removed by the periodic sweeper once expired.
package titles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lume_casino_bot/internal/domain"
)

// ErrUnknownDuration is returned for a temporary purchase with an unsupported
// day count.
var ErrUnknownDuration = errors.New("unsupported title duration")

// permanentPrices is the catalog of titles sold outright.
var permanentPrices = map[string]float64{
	"Boss":              50000,
	"Gambling Overlord": 30000,
	"King":              25000,
	"President":         15000,
	"Mayor":             10000,
	"Burgomaster":       5000,
}

// temporaryPrices maps a duration in days to its coin price.
var temporaryPrices = map[int]float64{
	1:  1000,
	3:  2500,
	7:  5000,
	30: 15000,
}

// Granter applies and removes custom titles in the chat platform.
type Granter interface {
	GrantTitle(ctx context.Context, chatID, userID int64, title string) error
	RevokeTitle(ctx context.Context, chatID, userID int64) error
}

// Wallet is the slice of the ledger the shop needs.
type Wallet interface {
	Profile(ctx context.Context, userID int64) (domain.Account, error)
	Apply(ctx context.Context, userID int64, delta float64, reason string) (float64, error)
}

type titleCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Purchase is a completed title sale.
type Purchase struct {
	Title      string     `json:"title"`
	Price      float64    `json:"price"`
	Discount   int        `json:"discount"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	NewBalance float64    `json:"new_balance"`
}

// Shop sells titles against the ledger and the chat platform.
type Shop struct {
	titles  titleCollection
	wallet  Wallet
	granter Granter
	logger  *logrus.Entry
	now     func() time.Time
}

// NewShop constructs a Shop.
func NewShop(titles titleCollection, wallet Wallet, granter Granter, logger *logrus.Entry) *Shop {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Shop{titles: titles, wallet: wallet, granter: granter, logger: logger, now: time.Now}
}

func (s *Shop) guard(ctx context.Context) error {
	if s == nil || s.wallet == nil {
		return errors.New("title shop is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// PermanentTitles lists the catalog in descending price order.
func PermanentTitles() []string {
	names := make([]string, 0, len(permanentPrices))
	for name := range permanentPrices {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if permanentPrices[names[i]] != permanentPrices[names[j]] {
			return permanentPrices[names[i]] > permanentPrices[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// TemporaryDurations lists the supported day counts in ascending order.
func TemporaryDurations() []int {
	days := make([]int, 0, len(temporaryPrices))
	for d := range temporaryPrices {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// PermanentPrice returns the discounted price of a catalog title.
func PermanentPrice(title string, discountTier int) (float64, error) {
	price, ok := permanentPrices[title]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownTitle, title)
	}
	return discounted(price, discountTier), nil
}

// TemporaryPrice returns the discounted price for a duration in days.
func TemporaryPrice(days, discountTier int) (float64, error) {
	price, ok := temporaryPrices[days]
	if !ok {
		return 0, fmt.Errorf("%w: %d days", ErrUnknownDuration, days)
	}
	return discounted(price, discountTier), nil
}

func discounted(price float64, tier int) float64 {
	if !domain.ValidDiscountTier(tier) {
		tier = 0
	}
	return price * float64(100-tier) / 100
}

// BuyPermanent charges the catalog price and applies the title in the chat.
// Nothing is recorded for the sweeper; a permanent title stays until an
// administrator removes it.
func (s *Shop) BuyPermanent(ctx context.Context, userID, chatID int64, title string) (Purchase, error) {
	if err := s.guard(ctx); err != nil {
		return Purchase{}, err
	}

	acct, err := s.wallet.Profile(ctx, userID)
	if err != nil {
		return Purchase{}, err
	}

	price, err := PermanentPrice(title, acct.DiscountTier)
	if err != nil {
		return Purchase{}, err
	}
	if acct.Balance < price {
		return Purchase{}, fmt.Errorf("%w: have %.2f, need %.2f", domain.ErrInsufficientBalance, acct.Balance, price)
	}

	balance, err := s.wallet.Apply(ctx, userID, -price, "title_purchase")
	if err != nil {
		return Purchase{}, err
	}

	s.applyTitle(ctx, chatID, userID, title)

	return Purchase{Title: title, Price: price, Discount: acct.DiscountTier, NewBalance: balance}, nil
}

// BuyTemporary charges the duration price, records the grant for the sweeper
// and applies the title in the chat. Re-buying extends from now, not from the
// previous expiry.
func (s *Shop) BuyTemporary(ctx context.Context, userID, chatID int64, title string, days int) (Purchase, error) {
	if err := s.guard(ctx); err != nil {
		return Purchase{}, err
	}
	if s.titles == nil {
		return Purchase{}, errors.New("title shop is not initialized")
	}

	acct, err := s.wallet.Profile(ctx, userID)
	if err != nil {
		return Purchase{}, err
	}

	price, err := TemporaryPrice(days, acct.DiscountTier)
	if err != nil {
		return Purchase{}, err
	}
	if acct.Balance < price {
		return Purchase{}, fmt.Errorf("%w: have %.2f, need %.2f", domain.ErrInsufficientBalance, acct.Balance, price)
	}

	balance, err := s.wallet.Apply(ctx, userID, -price, "title_purchase")
	if err != nil {
		return Purchase{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)

	_, err = s.titles.UpdateOne(ctx,
		bson.M{"user_id": userID, "chat_id": chatID},
		bson.M{"$set": bson.M{
			"user_id":    userID,
			"chat_id":    chatID,
			"title":      title,
			"expires_at": expiresAt,
			"created_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return Purchase{}, fmt.Errorf("record title grant: %w", err)
	}

	s.applyTitle(ctx, chatID, userID, title)

	return Purchase{
		Title:      title,
		Price:      price,
		Discount:   acct.DiscountTier,
		ExpiresAt:  &expiresAt,
		NewBalance: balance,
	}, nil
}

// applyTitle is best-effort: the purchase stands even when the platform call
// fails, since the coins are already spent and the grant is recorded.
func (s *Shop) applyTitle(ctx context.Context, chatID, userID int64, title string) {
	if s.granter == nil {
		return
	}

	if err := s.granter.GrantTitle(ctx, chatID, userID, title); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event":   "title_grant_failed",
			"user_id": userID,
			"chat_id": chatID,
		}).WithError(err).Error("chat title not applied")
	}
}
