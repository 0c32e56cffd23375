// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lume_casino_bot/internal/config"
)

// Collection names used across the bot.
const (
	CollectionAccounts  = "accounts"
	CollectionReferrals = "referrals"
	CollectionTitles    = "titles"
	CollectionSettings  = "settings"
	CollectionJournal   = "journal"
)

// mongoClient captures the subset of mongo.Client behavior we rely on to allow
// lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

// createIndexes is overridable for tests.
var createIndexes = func(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
	return coll.Indexes().CreateMany(ctx, models)
}

// Manager owns a MongoDB client and the configured database handle.
type Manager struct {
	client mongoClient
	db     *mongo.Database
}

// NewManager initializes the Mongo client using the supplied configuration and
// verifies connectivity with a ping.
func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Manager{
		client: client,
		db:     client.Database(cfg.MongoDB),
	}, nil
}

// Database returns the configured database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// Ping verifies connectivity against the primary.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		return errors.New("store manager is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// Collection returns a collection handle for the given name.
func (m *Manager) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Accounts returns the ledger accounts collection handle.
func (m *Manager) Accounts() *mongo.Collection {
	return m.Collection(CollectionAccounts)
}

// Referrals returns the referral records collection handle.
func (m *Manager) Referrals() *mongo.Collection {
	return m.Collection(CollectionReferrals)
}

// Titles returns the temporary title grants collection handle.
func (m *Manager) Titles() *mongo.Collection {
	return m.Collection(CollectionTitles)
}

// Settings returns the runtime settings (odds table) collection handle.
func (m *Manager) Settings() *mongo.Collection {
	return m.Collection(CollectionSettings)
}

// Journal returns the balance transaction journal collection handle.
func (m *Manager) Journal() *mongo.Collection {
	return m.Collection(CollectionJournal)
}

// EnsureBaseIndexes creates the foundational indexes for the economy
// collections. Collections are created implicitly if they do not already exist.
// The unique referral index on user_id is what makes bonus claiming
// idempotent under concurrent requests.
func (m *Manager) EnsureBaseIndexes(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}

	accountIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Accounts(), accountIndexes); err != nil {
		return fmt.Errorf("create accounts indexes: %w", err)
	}

	referralIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("referred_user_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Referrals(), referralIndexes); err != nil {
		return fmt.Errorf("create referrals indexes: %w", err)
	}

	titleIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "chat_id", Value: 1}},
			Options: options.Index().
				SetName("user_chat_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Titles(), titleIndexes); err != nil {
		return fmt.Errorf("create titles indexes: %w", err)
	}

	settingIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "key", Value: 1}},
			Options: options.Index().
				SetName("key_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Settings(), settingIndexes); err != nil {
		return fmt.Errorf("create settings indexes: %w", err)
	}

	journalIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tx_id", Value: 1}},
			Options: options.Index().
				SetName("tx_id_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Journal(), journalIndexes); err != nil {
		return fmt.Errorf("create journal indexes: %w", err)
	}

	return nil
}

// Close disconnects the Mongo client.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return m.client.Disconnect(ctx)
}
