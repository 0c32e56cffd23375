package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"lume_casino_bot/internal/admin"
	"lume_casino_bot/internal/domain"
	"lume_casino_bot/internal/economy"
	"lume_casino_bot/internal/feature/cases"
	"lume_casino_bot/internal/feature/referral"
	"lume_casino_bot/internal/feature/titles"
	"lume_casino_bot/internal/logging"
)

const (
	diceEmoji  = "🎲"
	slotsEmoji = "🎰"

	referralPrefix = "ref_"
)

// commandOptions registers every command handler with the bot.
func (c *Client) commandOptions() []bot.Option {
	commands := map[string]func(context.Context, *models.Message, []string){
		"/start":     c.handleStart,
		"/balance":   c.handleBalance,
		"/profile":   c.handleProfile,
		"/roulette":  c.handleRoulette,
		"/play":      c.handlePlay,
		"/russian":   c.handleRussian,
		"/jewish":    c.handleJewish,
		"/dice":      c.handleDice,
		"/slots":     c.handleSlots,
		"/case":      c.handleCase,
		"/burn":      c.handleBurn,
		"/discount":  c.handleDiscount,
		"/pay":       c.handlePay,
		"/top":       c.handleTop,
		"/ref":       c.handleRef,
		"/titles":    c.handleTitles,
		"/buytitle":  c.handleBuyTitle,
		"/renttitle": c.handleRentTitle,
		"/setchance": c.handleSetChance,
		"/give":      c.handleGive,
		"/take":      c.handleTake,
		"/reset":     c.handleReset,
		"/giveall":   c.handleGiveAll,
		"/promote":   c.handlePromote,
		"/demote":    c.handleDemote,
		"/stats":     c.handleStats,
	}

	opts := make([]bot.Option, 0, len(commands))
	for command, handler := range commands {
		opts = append(opts, bot.WithMessageTextHandler(command, bot.MatchTypePrefix, c.command(command, handler)))
	}
	return opts
}

// command adapts a handler to the bot callback shape, applying the bound
// chat gate and splitting arguments.
func (c *Client) command(name string, handler func(context.Context, *models.Message, []string)) bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		if update == nil || update.Message == nil || update.Message.From == nil {
			return
		}
		msg := update.Message
		if !c.allowedChat(msg) {
			return
		}

		fields := strings.Fields(msg.Text)
		if len(fields) == 0 {
			return
		}
		// A prefix match for /play would also catch /playground.
		command := strings.SplitN(fields[0], "@", 2)[0]
		if command != name {
			return
		}

		c.logger.WithFields(logging.Fields{
			"event":   "command",
			"command": name,
			"user_id": msg.From.ID,
			"chat_id": msg.Chat.ID,
		}).Info("command received")

		handler(ctx, msg, fields[1:])
	}
}

func (c *Client) handleStart(ctx context.Context, msg *models.Message, args []string) {
	if c.ledger == nil {
		return
	}

	userID := msg.From.ID

	if len(args) > 0 && strings.HasPrefix(args[0], referralPrefix) && c.referrals != nil {
		referrerID, err := strconv.ParseInt(strings.TrimPrefix(args[0], referralPrefix), 10, 64)
		if err == nil && referrerID != 0 {
			c.claimReferral(ctx, msg, userID, referrerID)
		}
	}

	acct, err := c.ledger.Profile(ctx, userID)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Welcome to the LumeCoin casino! Balance: %.0f coins. Try /roulette, /slots or open a daily /case.", acct.Balance))
}

func (c *Client) claimReferral(ctx context.Context, msg *models.Message, userID, referrerID int64) {
	err := c.referrals.Claim(ctx, userID, referrerID)
	switch {
	case err == nil:
		c.reply(ctx, msg, fmt.Sprintf("Referral bonus! You got %.0f coins, your inviter got %.0f.", referral.RewardReferred, referral.RewardReferrer))
	case errors.Is(err, referral.ErrSelfReferral),
		errors.Is(err, referral.ErrNotNewAccount),
		errors.Is(err, domain.ErrAlreadyClaimed):
		// Silent: the link was stale or abusive, the welcome still goes out.
	default:
		c.logger.WithFields(logging.Fields{
			"event":   "referral_claim_failed",
			"user_id": userID,
		}).WithError(err).Error("referral claim failed")
	}
}

func (c *Client) handleBalance(ctx context.Context, msg *models.Message, _ []string) {
	if c.ledger == nil {
		return
	}

	acct, err := c.ledger.Profile(ctx, msg.From.ID)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Balance: %.0f coins", acct.Balance))
}

func (c *Client) handleProfile(ctx context.Context, msg *models.Message, _ []string) {
	if c.ledger == nil {
		return
	}

	acct, err := c.ledger.Profile(ctx, msg.From.ID)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	text := fmt.Sprintf("Level %d (%d XP). Balance: %.0f coins.", acct.Level, acct.XP, acct.Balance)
	if acct.DiscountTier > 0 {
		text += fmt.Sprintf(" Shop discount: %d%%.", acct.DiscountTier)
	}
	c.reply(ctx, msg, text)
}

func (c *Client) handleRoulette(ctx context.Context, msg *models.Message, args []string) {
	bet, ok := c.parseBet(ctx, msg, args)
	if !ok {
		return
	}
	c.playChanceGame(ctx, msg, domain.GameRoulette, bet)
}

func (c *Client) handlePlay(ctx context.Context, msg *models.Message, _ []string) {
	c.playChanceGame(ctx, msg, domain.GamePlay, 0)
}

func (c *Client) handleRussian(ctx context.Context, msg *models.Message, _ []string) {
	c.playChanceGame(ctx, msg, domain.GameRussian, 0)
}

func (c *Client) handleJewish(ctx context.Context, msg *models.Message, _ []string) {
	c.playChanceGame(ctx, msg, domain.GameJewish, 0)
}

func (c *Client) playChanceGame(ctx context.Context, msg *models.Message, id domain.GameID, bet float64) {
	if c.games == nil {
		return
	}

	result, err := c.games.PlayGame(ctx, msg.From.ID, id, bet, 0)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	if result.Muted && msg.Chat.Type != models.ChatTypePrivate {
		c.mute(ctx, msg.Chat.ID, msg.From.ID)
	}

	c.reply(ctx, msg, formatPlayResult(result))
}

func (c *Client) handleDice(ctx context.Context, msg *models.Message, args []string) {
	bet, ok := c.parseBet(ctx, msg, args)
	if !ok {
		return
	}
	c.playRollGame(ctx, msg, domain.GameDice, bet, diceEmoji)
}

func (c *Client) handleSlots(ctx context.Context, msg *models.Message, _ []string) {
	c.playRollGame(ctx, msg, domain.GameSlots, 0, slotsEmoji)
}

// playRollGame throws a platform dice animation and settles the round on its
// value. When the throw fails the engine rolls internally instead.
func (c *Client) playRollGame(ctx context.Context, msg *models.Message, id domain.GameID, bet float64, emoji string) {
	if c.games == nil {
		return
	}

	roll := 0
	if c.api != nil {
		diceMsg, err := c.api.SendDice(ctx, &bot.SendDiceParams{
			ChatID: msg.Chat.ID,
			Emoji:  emoji,
		})
		if err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "dice_send_failed",
				"chat_id": msg.Chat.ID,
				"game":    string(id),
			}).WithError(err).Warn("falling back to internal roll")
		} else if diceMsg != nil && diceMsg.Dice != nil {
			roll = diceMsg.Dice.Value
		}
	}

	result, err := c.games.PlayGame(ctx, msg.From.ID, id, bet, roll)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, formatPlayResult(result))
}

func (c *Client) handleCase(ctx context.Context, msg *models.Message, _ []string) {
	if c.cases == nil {
		return
	}

	result, err := c.cases.Open(ctx, msg.From.ID)
	if errors.Is(err, domain.ErrOnCooldown) {
		if ok, remaining, canErr := c.cases.CanOpen(ctx, msg.From.ID); canErr == nil && !ok {
			c.reply(ctx, msg, fmt.Sprintf("The case is still locked. Come back in %s.", remaining.Round(time.Minute)))
			return
		}
		c.reply(ctx, msg, "The case is still locked. Come back later.")
		return
	}
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, formatPrize(result))
}

func (c *Client) handleBurn(ctx context.Context, msg *models.Message, args []string) {
	if c.games == nil {
		return
	}
	if len(args) == 0 {
		c.reply(ctx, msg, "Usage: /burn <coins>")
		return
	}

	amount, err := strconv.Atoi(args[0])
	if err != nil || amount <= 0 {
		c.reply(ctx, msg, "Usage: /burn <coins>")
		return
	}

	result, err := c.games.Burn(ctx, msg.From.ID, amount)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Burned %d coins for %d XP. Level %d (%d XP), balance %.0f.",
		result.Burned, result.XPGained, result.Level, result.XP, result.NewBalance))
}

// handleDiscount sells shop-discount tiers. The purchase is a private-chat
// flow so tier choices are not broadcast to the group.
func (c *Client) handleDiscount(ctx context.Context, msg *models.Message, args []string) {
	if c.games == nil {
		return
	}
	if msg.Chat.Type != models.ChatTypePrivate {
		c.reply(ctx, msg, "The discount shop only works in private messages.")
		return
	}

	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("Shop discounts (/discount <percent>):\n")
		for _, tier := range domain.DiscountTiers {
			price, ok := domain.DiscountTierPrices[tier]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %d%%: %.0f coins\n", tier, price)
		}
		c.reply(ctx, msg, strings.TrimSpace(b.String()))
		return
	}

	tier, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil {
		c.reply(ctx, msg, "Usage: /discount <percent>")
		return
	}

	result, err := c.games.BuyDiscount(ctx, msg.From.ID, tier)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("You now hold a %d%% shop discount for %.0f coins. Balance: %.0f.",
		result.Tier, result.Price, result.NewBalance))
}

func (c *Client) handlePay(ctx context.Context, msg *models.Message, args []string) {
	if c.ledger == nil {
		return
	}

	targetID, amountArg, ok := targetAndAmount(msg, args)
	if !ok {
		c.reply(ctx, msg, "Usage: /pay <user_id> <amount>, or reply to a message with /pay <amount>")
		return
	}

	amount, err := strconv.ParseFloat(amountArg, 64)
	if err != nil || amount <= 0 {
		c.reply(ctx, msg, "Usage: /pay <user_id> <amount>, or reply to a message with /pay <amount>")
		return
	}

	remaining, err := c.ledger.Transfer(ctx, msg.From.ID, targetID, amount)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Sent %.0f coins. Your balance: %.0f.", amount, remaining))
}

func (c *Client) handleTop(ctx context.Context, msg *models.Message, _ []string) {
	if c.stats == nil {
		return
	}

	entries, err := c.stats.TopBalances(ctx, 10)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}
	if len(entries) == 0 {
		c.reply(ctx, msg, "The leaderboard is empty.")
		return
	}

	var b strings.Builder
	b.WriteString("Richest players:\n")
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d. %d: %.0f coins (level %d)\n", i+1, entry.UserID, entry.Balance, entry.Level)
	}
	c.reply(ctx, msg, strings.TrimSpace(b.String()))
}

func (c *Client) handleRef(ctx context.Context, msg *models.Message, _ []string) {
	if c.referrals == nil {
		return
	}

	count, err := c.referrals.Count(ctx, msg.From.ID)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("You invited %d players. Share your link payload: %s%d", count, referralPrefix, msg.From.ID))
}

func (c *Client) handleTitles(ctx context.Context, msg *models.Message, _ []string) {
	var b strings.Builder
	b.WriteString("Permanent titles:\n")
	for _, name := range titles.PermanentTitles() {
		price, err := titles.PermanentPrice(name, 0)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s: %.0f coins\n", name, price)
	}
	b.WriteString("Temporary titles (/renttitle <days> <title>):\n")
	for _, days := range titles.TemporaryDurations() {
		price, err := titles.TemporaryPrice(days, 0)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %dd: %.0f coins\n", days, price)
	}
	c.reply(ctx, msg, strings.TrimSpace(b.String()))
}

func (c *Client) handleBuyTitle(ctx context.Context, msg *models.Message, args []string) {
	if c.titles == nil {
		return
	}
	if len(args) == 0 {
		c.reply(ctx, msg, "Usage: /buytitle <title>")
		return
	}

	purchase, err := c.titles.BuyPermanent(ctx, msg.From.ID, msg.Chat.ID, strings.Join(args, " "))
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Title %q is yours for %.0f coins. Balance: %.0f.", purchase.Title, purchase.Price, purchase.NewBalance))
}

func (c *Client) handleRentTitle(ctx context.Context, msg *models.Message, args []string) {
	if c.titles == nil {
		return
	}
	if len(args) < 2 {
		c.reply(ctx, msg, "Usage: /renttitle <days> <title>")
		return
	}

	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		c.reply(ctx, msg, "Usage: /renttitle <days> <title>")
		return
	}

	purchase, err := c.titles.BuyTemporary(ctx, msg.From.ID, msg.Chat.ID, strings.Join(args[1:], " "), days)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	text := fmt.Sprintf("Title %q rented for %.0f coins. Balance: %.0f.", purchase.Title, purchase.Price, purchase.NewBalance)
	if purchase.ExpiresAt != nil {
		text += fmt.Sprintf(" Expires %s.", purchase.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	c.reply(ctx, msg, text)
}

func (c *Client) handleSetChance(ctx context.Context, msg *models.Message, args []string) {
	if c.admin == nil {
		return
	}
	if len(args) < 2 {
		c.reply(ctx, msg, "Usage: /setchance <game> <percent>")
		return
	}

	value, err := strconv.Atoi(args[1])
	if err != nil {
		c.reply(ctx, msg, "Usage: /setchance <game> <percent>")
		return
	}

	if err := c.admin.SetWinChance(ctx, msg.From.ID, domain.GameID(args[0]), value); err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Win chance for %s set to %d%%.", args[0], value))
}

func (c *Client) handleGive(ctx context.Context, msg *models.Message, args []string) {
	c.adminCorrection(ctx, msg, args, true)
}

func (c *Client) handleTake(ctx context.Context, msg *models.Message, args []string) {
	c.adminCorrection(ctx, msg, args, false)
}

func (c *Client) adminCorrection(ctx context.Context, msg *models.Message, args []string, credit bool) {
	if c.admin == nil {
		return
	}

	usage := "Usage: /give <user_id> <amount>"
	if !credit {
		usage = "Usage: /take <user_id> <amount>"
	}

	targetID, amountArg, ok := targetAndAmount(msg, args)
	if !ok {
		c.reply(ctx, msg, usage)
		return
	}

	amount, err := strconv.ParseFloat(amountArg, 64)
	if err != nil || amount <= 0 {
		c.reply(ctx, msg, usage)
		return
	}

	var balance float64
	if credit {
		balance, err = c.admin.Credit(ctx, msg.From.ID, targetID, amount)
	} else {
		balance, err = c.admin.Debit(ctx, msg.From.ID, targetID, amount)
	}
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Done. Target balance: %.0f.", balance))
}

func (c *Client) handleReset(ctx context.Context, msg *models.Message, args []string) {
	if c.admin == nil {
		return
	}

	targetID, ok := targetUser(msg, args)
	if !ok {
		c.reply(ctx, msg, "Usage: /reset <user_id>")
		return
	}

	balance, err := c.admin.ResetBalance(ctx, msg.From.ID, targetID)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Balance reset to %.0f.", balance))
}

func (c *Client) handleGiveAll(ctx context.Context, msg *models.Message, args []string) {
	if c.admin == nil {
		return
	}
	if len(args) == 0 {
		c.reply(ctx, msg, "Usage: /giveall <amount>")
		return
	}

	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil || amount <= 0 {
		c.reply(ctx, msg, "Usage: /giveall <amount>")
		return
	}

	modified, err := c.admin.GiveAll(ctx, msg.From.ID, amount)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("Credited %.0f coins to %d accounts.", amount, modified))
}

func (c *Client) handlePromote(ctx context.Context, msg *models.Message, args []string) {
	c.adminRoleChange(ctx, msg, args, true)
}

func (c *Client) handleDemote(ctx context.Context, msg *models.Message, args []string) {
	c.adminRoleChange(ctx, msg, args, false)
}

func (c *Client) adminRoleChange(ctx context.Context, msg *models.Message, args []string, promote bool) {
	if c.admin == nil {
		return
	}

	usage := "Usage: /promote <user_id>"
	if !promote {
		usage = "Usage: /demote <user_id>"
	}

	targetID, ok := targetUser(msg, args)
	if !ok {
		c.reply(ctx, msg, usage)
		return
	}

	var err error
	if promote {
		err = c.admin.Promote(ctx, msg.From.ID, targetID)
	} else {
		err = c.admin.Demote(ctx, msg.From.ID, targetID)
	}
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, "Done.")
}

func (c *Client) handleStats(ctx context.Context, msg *models.Message, _ []string) {
	if c.admin == nil || c.stats == nil {
		return
	}

	privilege, err := c.admin.Privilege(ctx, msg.From.ID)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}
	if !privilege.Elevated() {
		c.reply(ctx, msg, "You are not allowed to do that.")
		return
	}

	count, err := c.stats.CountAccounts(ctx)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}
	total, err := c.stats.TotalCurrency(ctx)
	if err != nil {
		c.replyError(ctx, msg, err)
		return
	}

	c.reply(ctx, msg, fmt.Sprintf("%d accounts holding %.0f coins in total.", count, total))
}

// parseBet reads the bet argument for staked games.
func (c *Client) parseBet(ctx context.Context, msg *models.Message, args []string) (float64, bool) {
	if len(args) == 0 {
		c.reply(ctx, msg, "Name your bet: append the amount to the command.")
		return 0, false
	}

	bet, err := strconv.ParseFloat(args[0], 64)
	if err != nil || bet <= 0 {
		c.reply(ctx, msg, "Name your bet: append the amount to the command.")
		return 0, false
	}

	return bet, true
}

// targetAndAmount resolves a target user and amount argument, preferring the
// replied-to message's author as the target.
func targetAndAmount(msg *models.Message, args []string) (int64, string, bool) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		if len(args) < 1 {
			return 0, "", false
		}
		return msg.ReplyToMessage.From.ID, args[0], true
	}

	if len(args) < 2 {
		return 0, "", false
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID == 0 {
		return 0, "", false
	}
	return targetID, args[1], true
}

func targetUser(msg *models.Message, args []string) (int64, bool) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From.ID, true
	}
	if len(args) == 0 {
		return 0, false
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID == 0 {
		return 0, false
	}
	return targetID, true
}

func formatPlayResult(result economy.PlayResult) string {
	switch result.Label {
	case "jackpot":
		return fmt.Sprintf("JACKPOT! You won %.0f coins. Balance: %.0f.", result.Winnings, result.NewBalance)
	case "double":
		return fmt.Sprintf("Two in a row! You won %.0f coins. Balance: %.0f.", result.Winnings, result.NewBalance)
	case "win":
		return fmt.Sprintf("You won %.0f coins. Balance: %.0f.", result.Winnings, result.NewBalance)
	case "mute":
		return "Bang. Five minutes of silence."
	default:
		if result.Loss > 0 {
			return fmt.Sprintf("You lost %.0f coins. Balance: %.0f.", result.Loss, result.NewBalance)
		}
		return fmt.Sprintf("No luck this time. Balance: %.0f.", result.NewBalance)
	}
}

func formatPrize(result cases.OpenResult) string {
	switch result.Prize.Kind {
	case cases.PrizeXP:
		return fmt.Sprintf("The case held %d XP! You are level %d now.", result.Prize.XP, result.Level)
	case cases.PrizeRare:
		return fmt.Sprintf("A rare find! %.0f coins. Balance: %.0f.", result.Prize.Coins, result.NewBalance)
	default:
		return fmt.Sprintf("The case held %.0f coins. Balance: %.0f.", result.Prize.Coins, result.NewBalance)
	}
}

// replyError translates engine failures into user-facing messages without
// leaking internals.
func (c *Client) replyError(ctx context.Context, msg *models.Message, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		c.reply(ctx, msg, "Not enough coins for that.")
	case errors.Is(err, domain.ErrInvalidBet):
		c.reply(ctx, msg, "That bet is outside the allowed range.")
	case errors.Is(err, domain.ErrInvalidRoll):
		c.reply(ctx, msg, "That roll does not look right. Try again.")
	case errors.Is(err, domain.ErrUnknownGame):
		c.reply(ctx, msg, "No such game here.")
	case errors.Is(err, domain.ErrInvalidOddsValue):
		c.reply(ctx, msg, "Win chance must be between 0 and 100.")
	case errors.Is(err, domain.ErrUnknownTitle):
		c.reply(ctx, msg, "No such title in the shop, see /titles.")
	case errors.Is(err, titles.ErrUnknownDuration):
		c.reply(ctx, msg, "Titles rent for 1, 3, 7 or 30 days.")
	case errors.Is(err, domain.ErrInvalidDiscountTier):
		c.reply(ctx, msg, "Discounts come in 5, 10 or 20 percent.")
	case errors.Is(err, domain.ErrOnCooldown):
		c.reply(ctx, msg, "Not yet. Give it some time.")
	case errors.Is(err, admin.ErrNotAuthorized):
		c.reply(ctx, msg, "You are not allowed to do that.")
	default:
		c.logger.WithFields(logging.Fields{
			"event":   "command_failed",
			"user_id": messageUserID(msg),
			"chat_id": msg.Chat.ID,
		}).WithError(err).Error("command failed")
		c.reply(ctx, msg, "Something went wrong, try again later.")
	}
}
