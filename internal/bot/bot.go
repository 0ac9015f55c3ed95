// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/config"
	"warzone-bot/internal/game"
	"warzone-bot/internal/handler"
	"warzone-bot/internal/pkg/ratelimit"
	"warzone-bot/internal/pkg/session"
	"warzone-bot/internal/service"
	"warzone-bot/internal/shop"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	limiter *ratelimit.Limiter
	members *Members

	// Handlers
	accountHandler *handler.AccountHandler
	minerHandler   *handler.MinerHandler
	marketHandler  *handler.MarketHandler
	combatHandler  *handler.CombatHandler
	lootBoxHandler *handler.LootBoxHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config     *config.Config
	Clock      game.Clock
	Dispatcher *action.Dispatcher
	Ledger     *service.Ledger
	Miner      *service.MinerService
	Combat     *service.CombatService
	LootBox    *service.LootBoxService
	Ranking    *service.RankingService
	Admin      *service.AdminService
	Sessions   *session.Store
	Limiter    *ratelimit.Limiter
	Pool       handler.PoolStats

	// Offline skips the getMe call; used by tests.
	Offline bool
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" && !deps.Offline {
		return nil, fmt.Errorf("bot token is required")
	}

	pollTimeout := deps.Config.Bot.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}

	pref := tele.Settings{
		Token:   deps.Config.Bot.Token,
		Poller:  &tele.LongPoller{Timeout: pollTimeout},
		Offline: deps.Offline,
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     deps.Config,
		limiter: deps.Limiter,
		members: NewMembers(),
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.Dispatcher, deps.Ledger, deps.Ranking)
	b.minerHandler = handler.NewMinerHandler(deps.Dispatcher, deps.Miner, deps.Clock)
	b.marketHandler = handler.NewMarketHandler(deps.Dispatcher, deps.Ledger)
	b.combatHandler = handler.NewCombatHandler(deps.Dispatcher, deps.Ledger, deps.Combat, deps.Sessions, deps.Clock)
	b.lootBoxHandler = handler.NewLootBoxHandler(deps.Dispatcher, deps.LootBox)
	b.rankingHandler = handler.NewRankingHandler(deps.Ranking, deps.Clock)
	b.adminHandler = handler.NewAdminHandler(deps.Admin, deps.Pool, deps.Config.Backup.Dir, deps.Clock)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.members))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(RateLimitMiddleware(b.limiter))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)
	b.bot.Handle("/wallet", b.accountHandler.HandleWallet)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)

	// Economy handlers
	b.bot.Handle("/miner", b.minerHandler.HandleMiner)
	b.bot.Handle("/market", b.marketHandler.HandleMarket)
	b.bot.Handle("/buy", b.marketHandler.HandleBuy)
	b.bot.Handle("/box", b.lootBoxHandler.HandleBox)

	// Combat handlers
	b.bot.Handle("/attack", b.combatHandler.HandleAttack)
	b.bot.Handle("/combo", b.combatHandler.HandleCombo)
	b.bot.Handle("/retaliate", b.combatHandler.HandleRetaliate)
	b.bot.Handle("/attacks", b.combatHandler.HandleOpenAttacks)

	// Ranking handlers
	b.bot.Handle("/top", b.rankingHandler.HandleTop)
	b.bot.Handle("/raiders", b.rankingHandler.HandleRaiders)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/gift", b.adminHandler.HandleGift)
	adminGroup.Handle("/settier", b.adminHandler.HandleSetTier)
	adminGroup.Handle("/status", b.adminHandler.HandleStatus)
	adminGroup.Handle("/backup", b.adminHandler.HandleBackup)

	// Generic callback handler for every inline keyboard
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// callbackRoute maps a callback data prefix to the handler that owns it.
type callbackRoute struct {
	name   string
	prefix string
	handle tele.HandlerFunc
}

func (b *Bot) callbackRoutes() []callbackRoute {
	return []callbackRoute{
		{"market", "mkt_", b.marketHandler.HandleMarketCallback},
		{"miner", "miner_", b.minerHandler.HandleMinerCallback},
		{"combat", shop.CallbackAttackPick, b.combatHandler.HandleCombatCallback},
		{"combat", shop.CallbackAttackCancel, b.combatHandler.HandleCombatCallback},
		{"combat", "combo_", b.combatHandler.HandleCombatCallback},
		{"combat", shop.CallbackRetaliate, b.combatHandler.HandleCombatCallback},
		{"lootbox", shop.CallbackLootBox, b.lootBoxHandler.HandleBoxCallback},
	}
}

// routeCallback finds the route owning callback data.
func (b *Bot) routeCallback(data string) (callbackRoute, bool) {
	data = shop.TrimCallback(data)
	for _, r := range b.callbackRoutes() {
		if strings.HasPrefix(data, r.prefix) {
			return r, true
		}
	}
	return callbackRoute{}, false
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	r, ok := b.routeCallback(callback.Data)
	if !ok {
		log.Debug().Str("data", callback.Data).Msg("Unrouted callback")
		return c.Respond()
	}
	return r.handle(c)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.Start()
		close(done)
	}()

	<-ctx.Done()
	b.Stop()
	<-done
	return nil
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
