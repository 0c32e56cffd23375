package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestCountAccounts(t *testing.T) {
	coll := &fakeStatsCollection{count: 42}
	provider := NewStatsProvider(coll)

	count, err := provider.CountAccounts(context.Background())
	if err != nil {
		t.Fatalf("CountAccounts returned error: %v", err)
	}
	if count != 42 {
		t.Fatalf("expected 42 accounts, got %d", count)
	}
}

func TestCountAccountsPropagatesErrors(t *testing.T) {
	coll := &fakeStatsCollection{countErr: errors.New("count failed")}
	provider := NewStatsProvider(coll)

	if _, err := provider.CountAccounts(context.Background()); err == nil {
		t.Fatalf("expected count error")
	}
}

func TestTotalCurrencySumsBalances(t *testing.T) {
	coll := &fakeStatsCollection{
		aggregateDocs: []interface{}{bson.D{{Key: "total", Value: 1234.5}}},
	}
	provider := NewStatsProvider(coll)

	total, err := provider.TotalCurrency(context.Background())
	if err != nil {
		t.Fatalf("TotalCurrency returned error: %v", err)
	}
	if total != 1234.5 {
		t.Fatalf("expected total 1234.5, got %v", total)
	}
}

func TestTotalCurrencyEmptySystem(t *testing.T) {
	coll := &fakeStatsCollection{}
	provider := NewStatsProvider(coll)

	total, err := provider.TotalCurrency(context.Background())
	if err != nil {
		t.Fatalf("TotalCurrency returned error: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected zero total for empty system, got %v", total)
	}
}

func TestTopBalancesOrdersAndLimits(t *testing.T) {
	coll := &fakeStatsCollection{
		findDocs: []interface{}{
			bson.D{{Key: "user_id", Value: int64(1)}, {Key: "balance", Value: 900.0}, {Key: "level", Value: 4}},
			bson.D{{Key: "user_id", Value: int64(2)}, {Key: "balance", Value: 450.0}, {Key: "level", Value: 2}},
		},
	}
	provider := NewStatsProvider(coll)

	entries, err := provider.TopBalances(context.Background(), 2)
	if err != nil {
		t.Fatalf("TopBalances returned error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != 1 || entries[0].Balance != 900 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}

	if coll.lastFindOpts == nil || coll.lastFindOpts.Limit == nil || *coll.lastFindOpts.Limit != 2 {
		t.Fatalf("expected limit 2 to be passed to Find")
	}
	sort, ok := coll.lastFindOpts.Sort.(bson.D)
	if !ok || len(sort) != 1 || sort[0].Key != "balance" || sort[0].Value != -1 {
		t.Fatalf("expected descending balance sort, got %v", coll.lastFindOpts.Sort)
	}
}

func TestTopBalancesDefaultsLimit(t *testing.T) {
	coll := &fakeStatsCollection{}
	provider := NewStatsProvider(coll)

	if _, err := provider.TopBalances(context.Background(), 0); err != nil {
		t.Fatalf("TopBalances returned error: %v", err)
	}
	if coll.lastFindOpts == nil || coll.lastFindOpts.Limit == nil || *coll.lastFindOpts.Limit != 10 {
		t.Fatalf("expected default limit 10")
	}
}

func TestStatsProviderValidatesContext(t *testing.T) {
	provider := NewStatsProvider(&fakeStatsCollection{})

	if _, err := provider.CountAccounts(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := provider.TotalCurrency(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := provider.TopBalances(nil, 5); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

type fakeStatsCollection struct {
	count         int64
	countErr      error
	aggregateDocs []interface{}
	aggregateErr  error
	findDocs      []interface{}
	findErr       error
	lastFindOpts  *options.FindOptions
}

func (f *fakeStatsCollection) CountDocuments(_ context.Context, _ interface{}, _ ...*options.CountOptions) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeStatsCollection) Aggregate(_ context.Context, _ interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	if f.aggregateErr != nil {
		return nil, f.aggregateErr
	}
	docs := f.aggregateDocs
	if docs == nil {
		docs = []interface{}{}
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeStatsCollection) Find(_ context.Context, _ interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if len(opts) > 0 {
		f.lastFindOpts = opts[0]
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	docs := f.findDocs
	if docs == nil {
		docs = []interface{}{}
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}
