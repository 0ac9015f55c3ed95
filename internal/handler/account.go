package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/game/combat"
	"warzone-bot/internal/model"
	"warzone-bot/internal/service"
	"warzone-bot/internal/shop"
)

// AccountHandler handles registration and the wallet views.
type AccountHandler struct {
	dispatcher *action.Dispatcher
	ledger     *service.Ledger
	ranking    *service.RankingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(dispatcher *action.Dispatcher, ledger *service.Ledger, ranking *service.RankingService) *AccountHandler {
	return &AccountHandler{
		dispatcher: dispatcher,
		ledger:     ledger,
		ranking:    ranking,
	}
}

// ensure registers the sender on first contact and returns their row.
// Registration is idempotent, so every entry command can call it.
func (h *AccountHandler) ensure(ctx context.Context, u *tele.User) action.Result {
	handle, name := senderNames(u)
	return h.dispatcher.Dispatch(ctx, action.Action{
		ActorID: u.ID,
		Kind:    action.KindRegister,
		Handle:  handle,
		Name:    name,
	})
}

// HandleStart handles the /start command.
// Creates the player with the starting balances if they do not exist yet.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	res := h.ensure(ctx, sender)
	if !res.OK {
		return c.Reply(FailureText(res.Code))
	}

	if res.Created {
		return c.Reply(fmt.Sprintf(
			"🎖️ Welcome to the warzone, %s!\n\nStarting funds: %d💰 %d💎 %d ZP\n\n%s",
			displayName(sender), res.Player.Coins, res.Player.Gems, res.Player.Points, HelpText,
		))
	}

	return c.Reply(fmt.Sprintf("👋 Welcome back, %s!\n\n%s", displayName(sender), formatWallet(res.Player)))
}

// HelpText lists the player commands.
const HelpText = "Commands:\n" +
	"/wallet - balances\n" +
	"/profile - tiers and defenses\n" +
	"/miner - collect idle ZP\n" +
	"/market - buy missiles and upgrades\n" +
	"/buy <missile> [qty] - buy missiles directly\n" +
	"/attack [missile] - reply to a player to strike\n" +
	"/combo [missiles...] - reply to fire 2 to 4 missiles at once\n" +
	"/attacks - attacks you can answer\n" +
	"/retaliate <id> <missile> - answer an attack\n" +
	"/box - open a loot box\n" +
	"/top, /raiders - rankings\n" +
	"/help - this list"

// HandleHelp handles the /help command.
func (h *AccountHandler) HandleHelp(c tele.Context) error {
	return c.Reply("📖 " + HelpText)
}

// HandleWallet handles the /wallet command.
func (h *AccountHandler) HandleWallet(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	res := h.ensure(ctx, sender)
	if !res.OK {
		return c.Reply(FailureText(res.Code))
	}

	inv, err := h.ledger.Inventory(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(formatWallet(res.Player) + "\n\n" + shop.FormatInventoryMessage(inv))
}

// HandleProfile handles the /profile command.
// Shows level, tiers, combined mitigation and lifetime loot.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	res := h.ensure(ctx, sender)
	if !res.OK {
		return c.Reply(FailureText(res.Code))
	}
	p := res.Player

	coins, gems, err := h.ranking.GetTotalLoot(ctx, p.TelegramID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	msg := fmt.Sprintf("📊 %s\n", p.DisplayName())
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("⭐ Level %d (%d XP)\n", p.Level, p.Experience)
	msg += fmt.Sprintf("⛏️ Miner tier %d/%d\n", p.MinerTier, shop.MaxMinerTier)
	msg += fmt.Sprintf("✈️ Fighter tier %d/%d (+%s damage)\n", p.FighterTier, shop.MaxFighterTier, formatBP(combat.FighterBonus(p.FighterTier)))
	for _, cat := range model.DefenseCategories() {
		d := shop.Defenses[cat]
		msg += fmt.Sprintf("%s %s %d/%d\n", d.Emoji, d.Name, p.DefenseTier(cat), shop.MaxDefenseTier)
	}
	msg += fmt.Sprintf("🛡️ Mitigation: %s\n", formatBP(combat.Mitigation(p)))
	msg += fmt.Sprintf("🏴‍☠️ Lifetime loot: %d💰 %d💎\n", coins, gems)
	msg += "━━━━━━━━━━━━━━━"
	return c.Reply(msg)
}

func formatWallet(p *model.Player) string {
	return fmt.Sprintf(
		"💼 Wallet\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💰 Coins: %d\n"+
			"💎 Gems: %d\n"+
			"⚡ ZP: %d\n"+
			"⭐ Level: %d\n"+
			"━━━━━━━━━━━━━━━",
		p.Coins, p.Gems, p.Points, p.Level,
	)
}
