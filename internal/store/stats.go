// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type statsCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// LeaderboardEntry is one row of the balance leaderboard.
type LeaderboardEntry struct {
	UserID  int64   `bson:"user_id" json:"user_id"`
	Balance float64 `bson:"balance" json:"balance"`
	Level   int     `bson:"level" json:"level"`
}

// StatsProvider exposes aggregate economy figures for the admin dashboard and
// the web-app API without leaking MongoDB internals to callers.
type StatsProvider struct {
	accounts statsCollection
}

// NewStatsProvider constructs a StatsProvider backed by the accounts collection.
func NewStatsProvider(accounts statsCollection) *StatsProvider {
	return &StatsProvider{accounts: accounts}
}

// CountAccounts returns the number of registered ledger accounts.
func (p *StatsProvider) CountAccounts(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.accounts == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.accounts.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

// TotalCurrency returns the sum of all balances in the system.
func (p *StatsProvider) TotalCurrency(ctx context.Context) (float64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.accounts == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$balance"},
		}}},
	}

	cursor, err := p.accounts.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate total currency: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("decode total currency: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}

	return results[0].Total, nil
}

// TopBalances returns up to limit leaderboard entries ordered by descending
// balance.
func (p *StatsProvider) TopBalances(ctx context.Context, limit int64) ([]LeaderboardEntry, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if p == nil || p.accounts == nil {
		return nil, errors.New("stats provider is not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "balance", Value: -1}}).
		SetLimit(limit)

	cursor, err := p.accounts.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find top balances: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []LeaderboardEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode top balances: %w", err)
	}

	return entries, nil
}
