package economy

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"lume_casino_bot/internal/domain"
)

type stubOdds struct {
	chance int
	err    error
}

func (s stubOdds) WinChance(context.Context, domain.GameID) (int, error) {
	return s.chance, s.err
}

func newTestService(t *testing.T, odds WinChanceProvider) (*Service, *fakeAccounts, *fakeJournal) {
	t.Helper()

	ledger, accounts, journal := newTestLedger(t)
	logger, _ := logtest.NewNullLogger()

	return NewService(ledger, odds, logrus.NewEntry(logger)), accounts, journal
}

func TestPlayGameRouletteWinDoublesTheBet(t *testing.T) {
	service, accounts, _ := newTestService(t, stubOdds{chance: 30})
	service.draw = func() int { return 0 }

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 500)

	result, err := service.PlayGame(context.Background(), 1, domain.GameRoulette, 100, 0)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if !result.Won || result.Label != "win" {
		t.Fatalf("expected a win, got %+v", result)
	}
	if result.Winnings != 200 || result.Delta != 100 || result.Loss != 0 {
		t.Fatalf("unexpected amounts: %+v", result)
	}
	if result.NewBalance != 600 {
		t.Fatalf("expected balance 600, got %v", result.NewBalance)
	}
}

func TestPlayGameRouletteLossForfeitsTheStake(t *testing.T) {
	service, accounts, journal := newTestService(t, stubOdds{chance: 30})
	service.draw = func() int { return 99 }

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 500)

	result, err := service.PlayGame(context.Background(), 1, domain.GameRoulette, 100, 0)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if result.Won || result.Loss != 100 || result.Delta != -100 {
		t.Fatalf("unexpected loss result: %+v", result)
	}
	if result.NewBalance != 400 {
		t.Fatalf("expected balance 400, got %v", result.NewBalance)
	}

	reasons := journal.reasons()
	if len(reasons) != 1 || reasons[0] != "stake:roulette" {
		t.Fatalf("expected a single stake journal entry, got %v", reasons)
	}
}

func TestPlayGameRejectsBetWithoutSideEffects(t *testing.T) {
	service, accounts, journal := newTestService(t, stubOdds{chance: 30})

	seedAccount(t, service.ledger, 1, 100)

	_, err := service.PlayGame(context.Background(), 1, domain.GameRoulette, 5, 0)
	if !errors.Is(err, domain.ErrInvalidBet) {
		t.Fatalf("expected ErrInvalidBet, got %v", err)
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 100 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
	if len(journal.reasons()) != 0 {
		t.Fatalf("expected no journal entries, got %v", journal.reasons())
	}
}

func TestPlayGameRequiresStakeCoverage(t *testing.T) {
	service, accounts, _ := newTestService(t, stubOdds{chance: 30})

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 10)

	_, err := service.PlayGame(context.Background(), 1, domain.GameRoulette, 25, 0)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 10 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
}

func TestPlayGameJewishPenaltyClampsToBalance(t *testing.T) {
	service, accounts, journal := newTestService(t, stubOdds{chance: 50})
	service.draw = func() int { return 99 }

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 20)

	result, err := service.PlayGame(context.Background(), 1, domain.GameJewish, 0, 0)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if result.Won {
		t.Fatalf("expected a loss, got %+v", result)
	}
	if result.Loss != 20 || result.NewBalance != 0 || result.Delta != -20 {
		t.Fatalf("expected penalty clamped to 20, got %+v", result)
	}

	entry := journal.last(t)
	if entry.Reason != "penalty:jewish" || entry.Delta != -20 {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
}

func TestPlayGameRussianLossMutesWithoutDebit(t *testing.T) {
	service, accounts, journal := newTestService(t, stubOdds{chance: 35})
	service.draw = func() int { return 99 }

	seedAccount(t, service.ledger, 1, 100)

	result, err := service.PlayGame(context.Background(), 1, domain.GameRussian, 0, 0)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if !result.Muted || result.Label != "mute" {
		t.Fatalf("expected a mute outcome, got %+v", result)
	}
	if result.Loss != 0 || result.Delta != 0 || result.NewBalance != 100 {
		t.Fatalf("expected no balance effect, got %+v", result)
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 100 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
	if len(journal.reasons()) != 0 {
		t.Fatalf("expected no journal entries, got %v", journal.reasons())
	}
}

func TestPlayGameSlotsJackpot(t *testing.T) {
	service, _, _ := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)

	result, err := service.PlayGame(context.Background(), 1, domain.GameSlots, 0, 1)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if result.Label != "jackpot" || result.Winnings != 250 {
		t.Fatalf("expected jackpot paying 250, got %+v", result)
	}
	if result.NewBalance != 300 || result.Delta != 200 {
		t.Fatalf("expected balance 300 after stake and payout, got %+v", result)
	}
}

func TestPlayGameSlotsRollsInternallyWhenMissing(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	service.rollSlots = func() int { return 8 }

	seedAccount(t, service.ledger, 1, 100)

	result, err := service.PlayGame(context.Background(), 1, domain.GameSlots, 0, 0)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if result.Roll != 8 || result.Won {
		t.Fatalf("expected internal roll 8 to lose, got %+v", result)
	}
	if result.NewBalance != 50 || result.Loss != 50 {
		t.Fatalf("expected the fixed stake forfeited, got %+v", result)
	}
}

func TestPlayGameValidatesExternalRoll(t *testing.T) {
	service, accounts, _ := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)

	_, err := service.PlayGame(context.Background(), 1, domain.GameDice, 50, 7)
	if !errors.Is(err, domain.ErrInvalidRoll) {
		t.Fatalf("expected ErrInvalidRoll, got %v", err)
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 100 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
}

func TestPlayGameDiceUsesExternalRoll(t *testing.T) {
	service, _, _ := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)

	result, err := service.PlayGame(context.Background(), 1, domain.GameDice, 100, 5)
	if err != nil {
		t.Fatalf("PlayGame returned error: %v", err)
	}

	if !result.Won || result.Winnings != 150 {
		t.Fatalf("expected roll 5 to pay 150, got %+v", result)
	}
	if result.NewBalance != 150 || result.Delta != 50 {
		t.Fatalf("expected balance 150, got %+v", result)
	}
}

func TestPlayGameRejectsUnknownGame(t *testing.T) {
	service, _, _ := newTestService(t, stubOdds{chance: 50})

	_, err := service.PlayGame(context.Background(), 1, domain.GameID("poker"), 25, 0)
	if !errors.Is(err, domain.ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
}

func TestPlayGamePropagatesOddsErrors(t *testing.T) {
	service, accounts, _ := newTestService(t, stubOdds{err: errors.New("settings down")})

	seedAccount(t, service.ledger, 1, 100)

	_, err := service.PlayGame(context.Background(), 1, domain.GameRoulette, 25, 0)
	if err == nil {
		t.Fatalf("expected odds error to propagate")
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 100 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
}

func TestBurnConvertsCoinsToExperience(t *testing.T) {
	service, accounts, journal := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 300)

	result, err := service.Burn(context.Background(), 1, 250)
	if err != nil {
		t.Fatalf("Burn returned error: %v", err)
	}

	if result.XPGained != 500 || result.Level != 2 || result.XP != 0 {
		t.Fatalf("expected 500 xp reaching level 2 exactly, got %+v", result)
	}
	if result.NewBalance != 50 {
		t.Fatalf("expected balance 50, got %v", result.NewBalance)
	}

	entry := journal.last(t)
	if entry.Reason != "burn" || entry.Delta != -250 {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
}

func TestBurnRequiresFullCoverage(t *testing.T) {
	service, accounts, _ := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)

	_, err := service.Burn(context.Background(), 1, 150)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 100 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
}

func TestBurnRejectsNonPositiveAmounts(t *testing.T) {
	service, _, _ := newTestService(t, nil)

	if _, err := service.Burn(context.Background(), 1, 0); err == nil {
		t.Fatalf("expected zero burn to be rejected")
	}
	if _, err := service.Burn(context.Background(), 1, -10); err == nil {
		t.Fatalf("expected negative burn to be rejected")
	}
}

func TestBuyDiscountChargesAndStoresTheTier(t *testing.T) {
	service, accounts, journal := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 12000)

	result, err := service.BuyDiscount(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("BuyDiscount returned error: %v", err)
	}

	if result.Tier != 10 || result.Price != 10000 || result.NewBalance != 2000 {
		t.Fatalf("unexpected purchase: %+v", result)
	}

	acct, _ := accounts.get(1)
	if acct.DiscountTier != 10 || acct.Balance != 2000 {
		t.Fatalf("expected tier 10 at balance 2000, got %+v", acct)
	}

	entry := journal.last(t)
	if entry.Reason != "discount_purchase" || entry.Delta != -10000 {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
}

func TestBuyDiscountRequiresFullCoverage(t *testing.T) {
	service, accounts, journal := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 4999)

	_, err := service.BuyDiscount(context.Background(), 1, 5)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 4999 || acct.DiscountTier != 0 {
		t.Fatalf("expected account untouched, got %+v", acct)
	}
	if len(journal.reasons()) != 0 {
		t.Fatalf("expected no journal entries, got %v", journal.reasons())
	}
}

func TestBuyDiscountRejectsUnsoldTiers(t *testing.T) {
	service, accounts, _ := newTestService(t, nil)

	seedAccount(t, service.ledger, 1, 100)
	accounts.setBalance(1, 50000)

	for _, tier := range []int{0, 15, 25} {
		_, err := service.BuyDiscount(context.Background(), 1, tier)
		if !errors.Is(err, domain.ErrInvalidDiscountTier) {
			t.Fatalf("expected ErrInvalidDiscountTier for tier %d, got %v", tier, err)
		}
	}

	acct, _ := accounts.get(1)
	if acct.Balance != 50000 {
		t.Fatalf("expected balance untouched, got %v", acct.Balance)
	}
}
