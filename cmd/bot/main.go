package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"lume_casino_bot/internal/admin"
	"lume_casino_bot/internal/api"
	"lume_casino_bot/internal/config"
	"lume_casino_bot/internal/economy"
	"lume_casino_bot/internal/feature/cases"
	"lume_casino_bot/internal/feature/referral"
	"lume_casino_bot/internal/feature/titles"
	"lume_casino_bot/internal/health"
	"lume_casino_bot/internal/logging"
	"lume_casino_bot/internal/odds"
	"lume_casino_bot/internal/store"
	"lume_casino_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	ownerBootstrapTimeout   = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	httpShutdownTimeout     = 5 * time.Second

	titleSweepSchedule = "@every 1m"
)

// titleGranter is a late-binding indirection: the title shop needs the
// telegram client to apply titles, while the telegram client needs the shop
// for the purchase commands. The shop is built first against this holder and
// the client is filled in after construction.
type titleGranter struct {
	client *telegram.Client
}

func (g *titleGranter) GrantTitle(ctx context.Context, chatID, userID int64, title string) error {
	return g.client.GrantTitle(ctx, chatID, userID, title)
}

func (g *titleGranter) RevokeTitle(ctx context.Context, chatID, userID int64) error {
	return g.client.RevokeTitle(ctx, chatID, userID)
}

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	ownerCtx, cancelOwner := context.WithTimeout(context.Background(), ownerBootstrapTimeout)
	if err := admin.EnsureOwner(ownerCtx, mongoManager.Accounts(), cfg.BotOwnerID, logger); err != nil {
		cancelOwner()
		logger.WithError(err).Error("owner bootstrap error")
		fmt.Fprintf(os.Stderr, "owner bootstrap error: %v\n", err)
		os.Exit(1)
	}
	cancelOwner()

	ledger := economy.NewLedger(mongoManager.Accounts(), mongoManager.Journal(), logger)
	oddsTable := odds.NewTable(mongoManager.Settings(), logger)
	gameService := economy.NewService(ledger, oddsTable, logger)
	statsProvider := store.NewStatsProvider(mongoManager.Accounts())
	referralProgram := referral.NewProgram(mongoManager.Referrals(), ledger, logger)
	caseOpener := cases.NewOpener(mongoManager.Accounts(), ledger, logger)
	adminPanel := admin.NewPanel(mongoManager.Accounts(), ledger, oddsTable, logger)

	granter := &titleGranter{}
	titleShop := titles.NewShop(mongoManager.Titles(), ledger, granter, logger)
	titleSweeper := titles.NewSweeper(mongoManager.Titles(), granter, logger)

	tgClient, err := telegram.NewClient(cfg, logger,
		telegram.WithLedger(ledger),
		telegram.WithGameEngine(gameService),
		telegram.WithCaseOpener(caseOpener),
		telegram.WithReferralProgram(referralProgram),
		telegram.WithTitleShop(titleShop),
		telegram.WithAdminPanel(adminPanel),
		telegram.WithStatsProvider(statsProvider),
	)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}
	granter.client = tgClient

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	scheduler := cron.New()
	if _, err := scheduler.AddJob(titleSweepSchedule, titleSweeper); err != nil {
		logger.WithError(err).Error("scheduler setup error")
		fmt.Fprintf(os.Stderr, "scheduler setup error: %v\n", err)
		os.Exit(1)
	}
	scheduler.Start()

	logger.WithFields(logging.Fields{
		"event":    "scheduler_started",
		"schedule": titleSweepSchedule,
	}).Info("title sweep scheduled")

	healthServer := health.NewServer(cfg.HTTPPort, mongoManager, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	apiServer := api.NewServer(cfg.APIPort, cfg.TelegramToken, ledger, gameService, statsProvider, logger)
	go func() {
		if err := apiServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("api server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	<-scheduler.Stop().Done()
	logger.WithField("event", "scheduler_stopped").Info("title sweep scheduler stopped")

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := apiServer.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("api server shutdown error")
	}
	if err := healthServer.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHTTP()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
