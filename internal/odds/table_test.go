package odds

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lume_casino_bot/internal/domain"
)

func newTestTable(t *testing.T) (*Table, *fakeSettings) {
	t.Helper()

	settings := newFakeSettings()
	logger, _ := logtest.NewNullLogger()

	return NewTable(settings, logrus.NewEntry(logger)), settings
}

func TestWinChanceFallsBackToDefault(t *testing.T) {
	table, _ := newTestTable(t)

	chance, err := table.WinChance(context.Background(), domain.GameRoulette)
	if err != nil {
		t.Fatalf("WinChance returned error: %v", err)
	}
	if chance != 30 {
		t.Fatalf("expected the bootstrap default 30, got %d", chance)
	}
}

func TestSetWinChanceOverridesDefault(t *testing.T) {
	table, _ := newTestTable(t)

	if err := table.SetWinChance(context.Background(), domain.GameRoulette, 55); err != nil {
		t.Fatalf("SetWinChance returned error: %v", err)
	}

	chance, err := table.WinChance(context.Background(), domain.GameRoulette)
	if err != nil {
		t.Fatalf("WinChance returned error: %v", err)
	}
	if chance != 55 {
		t.Fatalf("expected override 55, got %d", chance)
	}
}

func TestSetWinChanceRejectsOutOfRangeValues(t *testing.T) {
	table, _ := newTestTable(t)

	if err := table.SetWinChance(context.Background(), domain.GameRoulette, 40); err != nil {
		t.Fatalf("SetWinChance returned error: %v", err)
	}

	for _, value := range []int{-1, 101, 150} {
		err := table.SetWinChance(context.Background(), domain.GameRoulette, value)
		if !errors.Is(err, domain.ErrInvalidOddsValue) {
			t.Fatalf("expected ErrInvalidOddsValue for %d, got %v", value, err)
		}
	}

	chance, err := table.WinChance(context.Background(), domain.GameRoulette)
	if err != nil {
		t.Fatalf("WinChance returned error: %v", err)
	}
	if chance != 40 {
		t.Fatalf("expected prior value 40 retained, got %d", chance)
	}
}

func TestSetWinChanceAcceptsBounds(t *testing.T) {
	table, _ := newTestTable(t)

	for _, value := range []int{0, 100} {
		if err := table.SetWinChance(context.Background(), domain.GamePlay, value); err != nil {
			t.Fatalf("expected %d to be accepted, got %v", value, err)
		}
	}
}

func TestOddsRejectUnknownGames(t *testing.T) {
	table, _ := newTestTable(t)

	if _, err := table.WinChance(context.Background(), domain.GameID("poker")); !errors.Is(err, domain.ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
	if err := table.SetWinChance(context.Background(), domain.GameID("poker"), 50); !errors.Is(err, domain.ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
}

func TestTableValidatesContext(t *testing.T) {
	table, _ := newTestTable(t)

	if _, err := table.WinChance(nil, domain.GameRoulette); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if err := table.SetWinChance(nil, domain.GameRoulette, 50); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

func TestWinChancePropagatesStorageErrors(t *testing.T) {
	table, settings := newTestTable(t)
	settings.findErr = errors.New("settings down")

	if _, err := table.WinChance(context.Background(), domain.GameRoulette); err == nil {
		t.Fatalf("expected storage error to propagate")
	}
}

type fakeSettings struct {
	mu      sync.Mutex
	values  map[string]int
	findErr error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]int)}
}

func (f *fakeSettings) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.findErr, nil)
	}

	key, _ := filter.(bson.M)["key"].(string)
	value, ok := f.values[key]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}

	return mongo.NewSingleResultFromDocument(oddsSetting{Key: key, Value: value}, nil, nil)
}

func (f *fakeSettings) UpdateOne(_ context.Context, filter, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, _ := filter.(bson.M)["key"].(string)
	if set, ok := update.(bson.M)["$set"].(bson.M); ok {
		if value, ok := set["value"].(int); ok {
			f.values[key] = value
		}
	}

	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}
