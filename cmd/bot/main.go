// Package main is the entry point for the warzone bot.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"warzone-bot/internal/action"
	"warzone-bot/internal/bot"
	"warzone-bot/internal/config"
	"warzone-bot/internal/game"
	"warzone-bot/internal/ops"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/pkg/lock"
	"warzone-bot/internal/pkg/ratelimit"
	"warzone-bot/internal/pkg/session"
	"warzone-bot/internal/repository"
	"warzone-bot/internal/service"
)

// sessionPurgeInterval is how often expired prompt sessions are dropped.
const sessionPurgeInterval = time.Minute

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	inventoryRepo := repository.NewInventoryRepository(dbPool.Pool)
	journalRepo := repository.NewLedgerRepository(dbPool.Pool)
	attackRepo := repository.NewAttackRepository(dbPool.Pool)

	clock := game.RealClock{}

	// Initialize services
	ledger := service.NewLedger(
		dbPool.Pool,
		playerRepo,
		inventoryRepo,
		journalRepo,
		lock.NewPlayerLock(),
		clock,
		service.LedgerOptions{
			StartInventory: cfg.Game.StartInventory,
			Progression: service.Progression{
				Threshold: cfg.Game.LevelUpThreshold,
				CoinBonus: cfg.Game.LevelUpCoinBonus,
				GemBonus:  cfg.Game.LevelUpGemBonus,
			},
		},
	)
	minerService := service.NewMinerService(ledger)
	marketService := service.NewMarketService(ledger)
	combatService := service.NewCombatService(ledger, attackRepo, cfg.Game.RetaliationWindow)
	lootBoxService := service.NewLootBoxService(ledger, rand.New(rand.NewSource(time.Now().UnixNano())))
	rankingService := service.NewRankingService(playerRepo, attackRepo, journalRepo, time.Local)
	adminService := service.NewAdminService(ledger, attackRepo)

	// Typed action entry point
	dispatcher := action.NewDispatcher(clock)
	if err := action.RegisterBuiltins(dispatcher, action.Services{
		Ledger:  ledger,
		Miner:   minerService,
		Market:  marketService,
		Combat:  combatService,
		LootBox: lootBoxService,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register actions")
	}

	log.Info().
		Int("action_count", dispatcher.Count()).
		Msg("Actions registered")

	sessions := session.NewStore(cfg.Game.SessionTTL, clock)

	redisClient := ratelimit.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	limiter := ratelimit.New(redisClient, cfg.RateLimit.MaxActions, cfg.RateLimit.Window)
	defer func() { _ = limiter.Close() }()

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:     cfg,
		Clock:      clock,
		Dispatcher: dispatcher,
		Ledger:     ledger,
		Miner:      minerService,
		Combat:     combatService,
		LootBox:    lootBoxService,
		Ranking:    rankingService,
		Admin:      adminService,
		Sessions:   sessions,
		Limiter:    limiter,
		Pool:       dbPool,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	opsServer := ops.NewServer(cfg.Ops.Addr, cfg.Ops.Version, map[string]ops.Pinger{
		"database": dbPool,
		"redis":    limiter,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Msg("Bot is starting...")
		return telegramBot.Run(gctx)
	})
	g.Go(func() error {
		return opsServer.Run(gctx)
	})
	g.Go(func() error {
		purgeSessions(gctx, sessions)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutting down after error")
		return
	}
	log.Info().Msg("Bot stopped gracefully")
}

// purgeSessions drops expired prompt sessions until ctx is done.
func purgeSessions(ctx context.Context, sessions *session.Store) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Purge(); n > 0 {
				log.Debug().Int("purged", n).Msg("Expired sessions purged")
			}
		}
	}
}
