// Package telegram hosts the Telegram client, command routing and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"lume_casino_bot/internal/config"
	"lume_casino_bot/internal/domain"
	"lume_casino_bot/internal/economy"
	"lume_casino_bot/internal/feature/cases"
	"lume_casino_bot/internal/feature/titles"
	"lume_casino_bot/internal/logging"
	"lume_casino_bot/internal/store"
)

const muteDuration = 5 * time.Minute

type botRunner interface {
	Start(ctx context.Context)
}

// botAPI is what createBot yields: the long-polling runner plus the API
// calls the handlers make.
type botAPI interface {
	botRunner
	tgAPI
}

// tgAPI is the slice of the bot client the handlers call. *bot.Bot satisfies
// it; tests substitute a recorder.
type tgAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDice(ctx context.Context, params *bot.SendDiceParams) (*models.Message, error)
	RestrictChatMember(ctx context.Context, params *bot.RestrictChatMemberParams) (bool, error)
	PromoteChatMember(ctx context.Context, params *bot.PromoteChatMemberParams) (bool, error)
	SetChatAdministratorCustomTitle(ctx context.Context, params *bot.SetChatAdministratorCustomTitleParams) (bool, error)
}

type ledgerAPI interface {
	Profile(ctx context.Context, userID int64) (domain.Account, error)
	Transfer(ctx context.Context, fromID, toID int64, amount float64) (float64, error)
}

type gameEngine interface {
	PlayGame(ctx context.Context, userID int64, id domain.GameID, bet float64, externalRoll int) (economy.PlayResult, error)
	Burn(ctx context.Context, userID int64, amount int) (economy.BurnResult, error)
	BuyDiscount(ctx context.Context, userID int64, tier int) (economy.DiscountResult, error)
}

type caseOpener interface {
	Open(ctx context.Context, userID int64) (cases.OpenResult, error)
	CanOpen(ctx context.Context, userID int64) (bool, time.Duration, error)
}

type referralProgram interface {
	Claim(ctx context.Context, referredID, referrerID int64) error
	Count(ctx context.Context, referrerID int64) (int64, error)
}

type titleShop interface {
	BuyPermanent(ctx context.Context, userID, chatID int64, title string) (titles.Purchase, error)
	BuyTemporary(ctx context.Context, userID, chatID int64, title string, days int) (titles.Purchase, error)
}

type adminPanel interface {
	Privilege(ctx context.Context, userID int64) (domain.Privilege, error)
	Promote(ctx context.Context, actorID, targetID int64) error
	Demote(ctx context.Context, actorID, targetID int64) error
	Credit(ctx context.Context, actorID, targetID int64, amount float64) (float64, error)
	Debit(ctx context.Context, actorID, targetID int64, amount float64) (float64, error)
	ResetBalance(ctx context.Context, actorID, targetID int64) (float64, error)
	GiveAll(ctx context.Context, actorID int64, amount float64) (int64, error)
	SetWinChance(ctx context.Context, actorID int64, id domain.GameID, value int) error
}

type statsAPI interface {
	TopBalances(ctx context.Context, limit int64) ([]store.LeaderboardEntry, error)
	CountAccounts(ctx context.Context) (int64, error)
	TotalCurrency(ctx context.Context) (float64, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"edited_message",
		"callback_query",
		"my_chat_member",
		"chat_member",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance, the command handlers and their
// dependencies.
type Client struct {
	bot         botRunner
	api         tgAPI
	logger      *logrus.Entry
	boundChatID int64

	ledger    ledgerAPI
	games     gameEngine
	cases     caseOpener
	referrals referralProgram
	titles    titleShop
	admin     adminPanel
	stats     statsAPI
}

// Option customizes the client's dependencies.
type Option func(*Client)

// WithLedger wires balance and transfer lookups.
func WithLedger(ledger ledgerAPI) Option {
	return func(c *Client) { c.ledger = ledger }
}

// WithGameEngine wires the game round engine.
func WithGameEngine(games gameEngine) Option {
	return func(c *Client) { c.games = games }
}

// WithCaseOpener wires the daily case feature.
func WithCaseOpener(opener caseOpener) Option {
	return func(c *Client) { c.cases = opener }
}

// WithReferralProgram wires the invite rewards.
func WithReferralProgram(program referralProgram) Option {
	return func(c *Client) { c.referrals = program }
}

// WithTitleShop wires title purchases.
func WithTitleShop(shop titleShop) Option {
	return func(c *Client) { c.titles = shop }
}

// WithAdminPanel wires the privileged operations.
func WithAdminPanel(panel adminPanel) Option {
	return func(c *Client) { c.admin = panel }
}

// WithStatsProvider wires leaderboard and aggregate figures.
func WithStatsProvider(stats statsAPI) Option {
	return func(c *Client) { c.stats = stats }
}

// NewClient initializes the Telegram bot with long polling and the command
// handlers.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{
		logger:      logger,
		boundChatID: cfg.BoundChatID,
	}
	for _, opt := range opts {
		opt(client)
	}

	botOptions := []bot.Option{
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.defaultHandler),
		bot.WithErrorsHandler(errorHandler(logger)),
	}
	botOptions = append(botOptions, client.commandOptions()...)

	tgBot, err := createBot(cfg.TelegramToken, botOptions...)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	client.api = tgBot

	return client, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// allowedChat reports whether a command from this chat should be handled.
// With a bound chat configured, group traffic outside it is ignored while
// private chats stay open for /start and profile commands.
func (c *Client) allowedChat(msg *models.Message) bool {
	if msg == nil {
		return false
	}
	if c.boundChatID == 0 {
		return true
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}

	return msg.Chat.ID == c.boundChatID
}

func (c *Client) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":   "telegram_update",
		"user_id": messageUserID(update.Message),
		"chat_id": update.Message.Chat.ID,
	}).Debug("unhandled telegram update")
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

// reply sends a plain text message into the message's chat. Send failures
// are logged; the handlers have nothing useful to do with them.
func (c *Client) reply(ctx context.Context, msg *models.Message, text string) {
	if c.api == nil || msg == nil {
		return
	}

	_, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   text,
	})
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "telegram_send_failed",
			"chat_id": msg.Chat.ID,
		}).WithError(err).Warn("reply not sent")
	}
}

// mute restricts a user in the chat for the fixed penalty window.
func (c *Client) mute(ctx context.Context, chatID, userID int64) {
	if c.api == nil {
		return
	}

	_, err := c.api.RestrictChatMember(ctx, &bot.RestrictChatMemberParams{
		ChatID:      chatID,
		UserID:      userID,
		Permissions: &models.ChatPermissions{},
		UntilDate:   int(time.Now().Add(muteDuration).Unix()),
	})
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "mute_failed",
			"chat_id": chatID,
			"user_id": userID,
		}).WithError(err).Warn("mute not applied")
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":   "user_muted",
		"chat_id": chatID,
		"user_id": userID,
	}).Info("user muted")
}

// GrantTitle promotes the user with no extra rights and applies the custom
// title. Telegram only shows custom titles on administrators, so the minimal
// promote is part of the choreography.
func (c *Client) GrantTitle(ctx context.Context, chatID, userID int64, title string) error {
	if c.api == nil {
		return errors.New("telegram api is not available")
	}

	if _, err := c.api.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{
		ChatID:         chatID,
		UserID:         userID,
		CanInviteUsers: true,
	}); err != nil {
		return fmt.Errorf("promote for title: %w", err)
	}

	if _, err := c.api.SetChatAdministratorCustomTitle(ctx, &bot.SetChatAdministratorCustomTitleParams{
		ChatID:      chatID,
		UserID:      userID,
		CustomTitle: title,
	}); err != nil {
		return fmt.Errorf("set custom title: %w", err)
	}

	return nil
}

// RevokeTitle demotes the user back to a regular member, which clears the
// custom title.
func (c *Client) RevokeTitle(ctx context.Context, chatID, userID int64) error {
	if c.api == nil {
		return errors.New("telegram api is not available")
	}

	if _, err := c.api.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	}); err != nil {
		return fmt.Errorf("demote for title: %w", err)
	}

	return nil
}

func messageUserID(msg *models.Message) int64 {
	if msg == nil || msg.From == nil {
		return 0
	}
	return msg.From.ID
}
