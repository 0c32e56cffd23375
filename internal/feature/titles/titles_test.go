package titles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lume_casino_bot/internal/domain"
)

func newTestShop(t *testing.T) (*Shop, *fakeTitles, *shopWallet, *fakeGranter) {
	t.Helper()

	titles := newFakeTitles()
	wallet := newShopWallet()
	granter := &fakeGranter{}
	logger, _ := logtest.NewNullLogger()

	shop := NewShop(titles, wallet, granter, logrus.NewEntry(logger))
	shop.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return shop, titles, wallet, granter
}

func TestPermanentPriceAppliesDiscount(t *testing.T) {
	price, err := PermanentPrice("Boss", 0)
	if err != nil {
		t.Fatalf("PermanentPrice returned error: %v", err)
	}
	if price != 50000 {
		t.Fatalf("expected 50000, got %v", price)
	}

	price, err = PermanentPrice("Boss", 20)
	if err != nil {
		t.Fatalf("PermanentPrice returned error: %v", err)
	}
	if price != 40000 {
		t.Fatalf("expected 20%% discount to yield 40000, got %v", price)
	}

	if _, err := PermanentPrice("Peasant", 0); !errors.Is(err, domain.ErrUnknownTitle) {
		t.Fatalf("expected ErrUnknownTitle, got %v", err)
	}
}

func TestTemporaryPriceByDuration(t *testing.T) {
	cases := map[int]float64{1: 1000, 3: 2500, 7: 5000, 30: 15000}
	for days, want := range cases {
		price, err := TemporaryPrice(days, 0)
		if err != nil {
			t.Fatalf("TemporaryPrice(%d) returned error: %v", days, err)
		}
		if price != want {
			t.Fatalf("expected %v for %d days, got %v", want, days, price)
		}
	}

	if _, err := TemporaryPrice(2, 0); !errors.Is(err, ErrUnknownDuration) {
		t.Fatalf("expected ErrUnknownDuration, got %v", err)
	}
}

func TestCatalogOrdering(t *testing.T) {
	names := PermanentTitles()
	if len(names) != 6 || names[0] != "Boss" || names[len(names)-1] != "Burgomaster" {
		t.Fatalf("unexpected catalog order: %v", names)
	}

	days := TemporaryDurations()
	if len(days) != 4 || days[0] != 1 || days[3] != 30 {
		t.Fatalf("unexpected durations: %v", days)
	}
}

func TestBuyPermanentChargesAndGrants(t *testing.T) {
	shop, titles, wallet, granter := newTestShop(t)
	wallet.accounts[1] = domain.Account{UserID: 1, Balance: 60000}

	purchase, err := shop.BuyPermanent(context.Background(), 1, -100, "Boss")
	if err != nil {
		t.Fatalf("BuyPermanent returned error: %v", err)
	}

	if purchase.Price != 50000 || purchase.NewBalance != 10000 {
		t.Fatalf("unexpected purchase: %+v", purchase)
	}
	if purchase.ExpiresAt != nil {
		t.Fatalf("expected permanent purchase to carry no expiry")
	}
	if len(titles.grants) != 0 {
		t.Fatalf("expected no sweeper record for permanent title")
	}
	if len(granter.granted) != 1 || granter.granted[0].title != "Boss" {
		t.Fatalf("expected chat title grant, got %+v", granter.granted)
	}
}

func TestBuyPermanentHonorsDiscountTier(t *testing.T) {
	shop, _, wallet, _ := newTestShop(t)
	wallet.accounts[1] = domain.Account{UserID: 1, Balance: 45000, DiscountTier: 20}

	purchase, err := shop.BuyPermanent(context.Background(), 1, -100, "Boss")
	if err != nil {
		t.Fatalf("BuyPermanent returned error: %v", err)
	}
	if purchase.Price != 40000 || purchase.Discount != 20 {
		t.Fatalf("expected discounted price 40000, got %+v", purchase)
	}
}

func TestBuyPermanentRequiresCoverage(t *testing.T) {
	shop, _, wallet, granter := newTestShop(t)
	wallet.accounts[1] = domain.Account{UserID: 1, Balance: 100}

	_, err := shop.BuyPermanent(context.Background(), 1, -100, "Boss")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if wallet.accounts[1].Balance != 100 {
		t.Fatalf("expected balance untouched, got %v", wallet.accounts[1].Balance)
	}
	if len(granter.granted) != 0 {
		t.Fatalf("expected no chat grant on rejection")
	}
}

func TestBuyTemporaryRecordsGrantForSweep(t *testing.T) {
	shop, titles, wallet, granter := newTestShop(t)
	wallet.accounts[1] = domain.Account{UserID: 1, Balance: 3000}

	purchase, err := shop.BuyTemporary(context.Background(), 1, -100, "Night King", 3)
	if err != nil {
		t.Fatalf("BuyTemporary returned error: %v", err)
	}

	if purchase.Price != 2500 || purchase.NewBalance != 500 {
		t.Fatalf("unexpected purchase: %+v", purchase)
	}
	if purchase.ExpiresAt == nil {
		t.Fatalf("expected temporary purchase to carry an expiry")
	}

	wantExpiry := shop.now().Add(3 * 24 * time.Hour)
	if !purchase.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, purchase.ExpiresAt)
	}

	grant, ok := titles.get(1, -100)
	if !ok {
		t.Fatalf("expected grant record for the sweeper")
	}
	if grant.Title != "Night King" || !grant.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("unexpected grant record: %+v", grant)
	}
	if len(granter.granted) != 1 {
		t.Fatalf("expected chat title grant")
	}
}

func TestBuyTemporarySurvivesGrantFailure(t *testing.T) {
	shop, titles, wallet, granter := newTestShop(t)
	wallet.accounts[1] = domain.Account{UserID: 1, Balance: 3000}
	granter.grantErr = errors.New("platform down")

	purchase, err := shop.BuyTemporary(context.Background(), 1, -100, "Night King", 1)
	if err != nil {
		t.Fatalf("expected purchase to survive grant failure, got %v", err)
	}
	if purchase.NewBalance != 2000 {
		t.Fatalf("expected the charge to stand, got %v", purchase.NewBalance)
	}
	if _, ok := titles.get(1, -100); !ok {
		t.Fatalf("expected grant record despite platform failure")
	}
}

func TestSweepRemovesOnlyExpiredGrants(t *testing.T) {
	titles := newFakeTitles()
	granter := &fakeGranter{}
	logger, _ := logtest.NewNullLogger()

	sweeper := NewSweeper(titles, granter, logrus.NewEntry(logger))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	titles.put(domain.TitleGrant{UserID: 1, ChatID: -100, Title: "Old", ExpiresAt: now.Add(-time.Hour)})
	titles.put(domain.TitleGrant{UserID: 2, ChatID: -100, Title: "Fresh", ExpiresAt: now.Add(time.Hour)})

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	if _, ok := titles.get(1, -100); ok {
		t.Fatalf("expected expired grant to be removed")
	}
	if _, ok := titles.get(2, -100); !ok {
		t.Fatalf("expected live grant to survive")
	}
	if len(granter.revoked) != 1 || granter.revoked[0].userID != 1 {
		t.Fatalf("expected revoke for user 1, got %+v", granter.revoked)
	}
}

func TestSweepKeepsGrantWhenRevokeFails(t *testing.T) {
	titles := newFakeTitles()
	granter := &fakeGranter{revokeErr: errors.New("platform down")}
	logger, _ := logtest.NewNullLogger()

	sweeper := NewSweeper(titles, granter, logrus.NewEntry(logger))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	titles.put(domain.TitleGrant{UserID: 1, ChatID: -100, Title: "Old", ExpiresAt: now.Add(-time.Hour)})

	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if _, ok := titles.get(1, -100); !ok {
		t.Fatalf("expected grant kept for the next pass")
	}
}

type grantCall struct {
	chatID int64
	userID int64
	title  string
}

type fakeGranter struct {
	granted   []grantCall
	revoked   []grantCall
	grantErr  error
	revokeErr error
}

func (f *fakeGranter) GrantTitle(_ context.Context, chatID, userID int64, title string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.granted = append(f.granted, grantCall{chatID: chatID, userID: userID, title: title})
	return nil
}

func (f *fakeGranter) RevokeTitle(_ context.Context, chatID, userID int64) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, grantCall{chatID: chatID, userID: userID})
	return nil
}

type grantKey struct {
	userID int64
	chatID int64
}

type fakeTitles struct {
	mu     sync.Mutex
	grants map[grantKey]domain.TitleGrant
}

func newFakeTitles() *fakeTitles {
	return &fakeTitles{grants: make(map[grantKey]domain.TitleGrant)}
}

func (f *fakeTitles) put(grant domain.TitleGrant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[grantKey{userID: grant.UserID, chatID: grant.ChatID}] = grant
}

func (f *fakeTitles) get(userID, chatID int64) (domain.TitleGrant, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grant, ok := f.grants[grantKey{userID: userID, chatID: chatID}]
	return grant, ok
}

func (f *fakeTitles) UpdateOne(_ context.Context, filter, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, _ := filter.(bson.M)
	key := grantKey{}
	key.userID, _ = doc["user_id"].(int64)
	key.chatID, _ = doc["chat_id"].(int64)

	grant := f.grants[key]
	if set, ok := update.(bson.M)["$set"].(bson.M); ok {
		grant.UserID = key.userID
		grant.ChatID = key.chatID
		if title, ok := set["title"].(string); ok {
			grant.Title = title
		}
		if expires, ok := set["expires_at"].(time.Time); ok {
			grant.ExpiresAt = expires
		}
		if created, ok := set["created_at"].(time.Time); ok {
			grant.CreatedAt = created
		}
	}
	f.grants[key] = grant

	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeTitles) Find(_ context.Context, filter interface{}, _ ...*options.FindOptions) (*mongo.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Time{}
	if doc, ok := filter.(bson.M)["expires_at"].(bson.M); ok {
		cutoff, _ = doc["$lte"].(time.Time)
	}

	docs := []interface{}{}
	for _, grant := range f.grants {
		if !grant.ExpiresAt.After(cutoff) {
			docs = append(docs, grant)
		}
	}

	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeTitles) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, _ := filter.(bson.M)
	key := grantKey{}
	key.userID, _ = doc["user_id"].(int64)
	key.chatID, _ = doc["chat_id"].(int64)

	if _, ok := f.grants[key]; !ok {
		return &mongo.DeleteResult{}, nil
	}
	delete(f.grants, key)

	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

type shopWallet struct {
	mu       sync.Mutex
	accounts map[int64]domain.Account
	reasons  []string
}

func newShopWallet() *shopWallet {
	return &shopWallet{accounts: make(map[int64]domain.Account)}
}

func (f *shopWallet) Profile(_ context.Context, userID int64) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[userID]
	if !ok {
		acct = domain.Account{UserID: userID, Balance: domain.DefaultBalance, Level: domain.DefaultLevel}
		f.accounts[userID] = acct
	}
	return acct, nil
}

func (f *shopWallet) Apply(_ context.Context, userID int64, delta float64, reason string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct := f.accounts[userID]
	acct.Balance += delta
	if acct.Balance < 0 {
		acct.Balance = 0
	}
	f.accounts[userID] = acct
	f.reasons = append(f.reasons, reason)

	return acct.Balance, nil
}
