package titles

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

const sweepTimeout = 30 * time.Second

type sweepCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Sweeper removes expired temporary titles. It satisfies cron.Job so the
// scheduler can run it on an interval.
type Sweeper struct {
	titles  sweepCollection
	granter Granter
	logger  *logrus.Entry
	now     func() time.Time
}

// NewSweeper constructs a Sweeper.
func NewSweeper(titles sweepCollection, granter Granter, logger *logrus.Entry) *Sweeper {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Sweeper{titles: titles, granter: granter, logger: logger, now: time.Now}
}

// Run executes one sweep with a bounded context. Errors are logged, not
// returned, because the scheduler has nobody to hand them to.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event": "title_sweep_failed",
		}).WithError(err).Error("title sweep failed")
	}
}

// Sweep revokes and deletes every grant whose expiry has passed. A grant
// whose revoke call fails is kept for the next pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if s == nil || s.titles == nil {
		return errors.New("title sweeper is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	now := s.now().UTC()

	cursor, err := s.titles.Find(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return fmt.Errorf("find expired titles: %w", err)
	}
	defer cursor.Close(ctx)

	var grants []domain.TitleGrant
	if err := cursor.All(ctx, &grants); err != nil {
		return fmt.Errorf("decode expired titles: %w", err)
	}

	for _, grant := range grants {
		if s.granter != nil {
			if err := s.granter.RevokeTitle(ctx, grant.ChatID, grant.UserID); err != nil {
				s.logger.WithFields(logrus.Fields{
					"event":   "title_revoke_failed",
					"user_id": grant.UserID,
					"chat_id": grant.ChatID,
				}).WithError(err).Warn("expired title not revoked, will retry")
				continue
			}
		}

		if _, err := s.titles.DeleteOne(ctx, bson.M{"user_id": grant.UserID, "chat_id": grant.ChatID}); err != nil {
			return fmt.Errorf("delete expired title: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"event":   "title_expired",
			"user_id": grant.UserID,
			"chat_id": grant.ChatID,
			"title":   grant.Title,
		}).Info("expired title removed")
	}

	return nil
}
