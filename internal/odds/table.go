// Package odds stores the administrator-adjustable win probabilities for the
// chance-based games. Values live in the settings collection so a restart
// never resets them; a game without a stored value falls back to its
// bootstrap default.
package odds

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

type settingsCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type oddsSetting struct {
	Key   string `bson:"key"`
	Value int    `bson:"value"`
}

// Table reads and writes per-game win chances.
type Table struct {
	settings settingsCollection
	logger   *logrus.Entry
	now      func() time.Time
}

// NewTable constructs a Table over the settings collection.
func NewTable(settings settingsCollection, logger *logrus.Entry) *Table {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Table{settings: settings, logger: logger, now: time.Now}
}

// SettingKey returns the settings document key for a game's win chance.
func SettingKey(id domain.GameID) string {
	return string(id) + "_win_chance"
}

func (t *Table) guard(ctx context.Context) error {
	if t == nil || t.settings == nil {
		return errors.New("odds table is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	return nil
}

// WinChance returns the live win chance for the game, falling back to the
// game's default when no override is stored.
func (t *Table) WinChance(ctx context.Context, id domain.GameID) (int, error) {
	if err := t.guard(ctx); err != nil {
		return 0, err
	}

	def, err := domain.LookupGame(id)
	if err != nil {
		return 0, err
	}

	res := t.settings.FindOne(ctx, bson.M{"key": SettingKey(id)})
	if res == nil {
		return 0, errors.New("find setting returned no result")
	}

	err = res.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return def.DefaultWinChance, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find win chance: %w", err)
	}

	var setting oddsSetting
	if err := res.Decode(&setting); err != nil {
		return 0, fmt.Errorf("decode win chance: %w", err)
	}

	return setting.Value, nil
}

// SetWinChance stores an override for the game's win chance. Values outside
// 0..100 are rejected without touching the stored value.
func (t *Table) SetWinChance(ctx context.Context, id domain.GameID, value int) error {
	if err := t.guard(ctx); err != nil {
		return err
	}

	if _, err := domain.LookupGame(id); err != nil {
		return err
	}
	if value < 0 || value > 100 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidOddsValue, value)
	}

	_, err := t.settings.UpdateOne(ctx,
		bson.M{"key": SettingKey(id)},
		bson.M{"$set": bson.M{
			"key":        SettingKey(id),
			"value":      value,
			"updated_at": t.now().UTC().Truncate(time.Millisecond),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("store win chance: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"event":      "odds_updated",
		"game":       string(id),
		"win_chance": value,
	}).Info("win chance updated")

	return nil
}
