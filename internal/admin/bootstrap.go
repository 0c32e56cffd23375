// Package admin implements the privileged operations: role management,
// balance corrections, mass credits and win chance control. Every operation
// checks the actor's stored role before touching anything.
package admin

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

type adminCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// EnsureOwner upserts the configured owner's account with the owner role.
// Run once at startup so the privilege checks always have an owner to find.
func EnsureOwner(ctx context.Context, accounts adminCollection, ownerID int64, logger *logrus.Entry) error {
	if accounts == nil {
		return errors.New("accounts collection is required")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if ownerID == 0 {
		return errors.New("owner id is required")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := accounts.UpdateOne(ctx,
		bson.M{"user_id": ownerID},
		bson.M{
			"$set": bson.M{"role": domain.RoleOwner, "updated_at": now},
			"$setOnInsert": bson.M{
				"user_id":       ownerID,
				"balance":       domain.DefaultBalance,
				"xp":            0,
				"level":         domain.DefaultLevel,
				"discount_tier": 0,
				"created_at":    now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"event":   "owner_ensured",
		"user_id": ownerID,
	}).Info("owner account ensured")

	return nil
}
